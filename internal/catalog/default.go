package catalog

// HomeBodyID 默认起始星球
const HomeBodyID = "earth"

var defaultBodies = []Body{
	{
		ID:             "earth",
		Name:           "Earth",
		Description:    "The blue planet, home to humanity and diverse ecosystems.",
		TravelCost:     0,
		RefuelCost:     30,
		MaxDiscoveries: 5,
		Environment:    "Terrestrial with oceans",
		DiscoveryPool:  []string{"Humans", "Dolphins", "Eagles", "Tigers", "Coral"},
		Satellites: []Satellite{
			{ID: "moon", Name: "Moon", Description: "Earth's only natural satellite."},
		},
	},
	{
		ID:             "mars",
		Name:           "Mars",
		Description:    "The red planet with ancient riverbeds and polar ice caps.",
		TravelCost:     200,
		RefuelCost:     40,
		MaxDiscoveries: 8,
		Environment:    "Desert with ice caps",
		DiscoveryPool: []string{
			"Martian Bacteria", "Cave Crystals", "Dust Devils", "Ice Worms",
			"Rock Lichens", "Subsurface Microbes", "Mineral Formations", "Frozen Organics",
		},
		Satellites: []Satellite{
			{ID: "phobos", Name: "Phobos", Description: "The larger, inner moon of Mars."},
			{ID: "deimos", Name: "Deimos", Description: "The smaller, outer moon of Mars."},
		},
	},
	{
		ID:             "europa",
		Name:           "Europa",
		Description:    "Jupiter's icy moon with a subsurface ocean beneath its frozen shell.",
		TravelCost:     500,
		RefuelCost:     60,
		MaxDiscoveries: 12,
		Environment:    "Icy surface with subsurface ocean",
		DiscoveryPool: []string{
			"Hydrothermal Tube Worms", "Bioluminescent Plankton", "Ice Crystals", "Deep Sea Jellies",
			"Thermal Vent Bacteria", "Cryophilic Algae", "Pressure-adapted Fish", "Frozen Methane Deposits",
			"Mineral Precipitates", "Sub-ice Corals", "Chemosynthetic Organisms", "Ice-boring Microbes",
		},
	},
	{
		ID:             "titan",
		Name:           "Titan",
		Description:    "Saturn's largest moon with thick atmosphere and methane lakes.",
		TravelCost:     750,
		RefuelCost:     80,
		MaxDiscoveries: 15,
		Environment:    "Methane lakes and thick atmosphere",
		DiscoveryPool: []string{
			"Methane-based Organisms", "Atmospheric Floaters", "Hydrocarbon Crystals", "Lake Swimmers",
			"Nitrogen Fixers", "Organic Polymers", "Cryogenic Bacteria", "Ethane Ice",
			"Atmospheric Symbionts", "Tholin Particles", "Gas-phase Microbes", "Liquid Nitrogen Pools",
			"Methane Geysers", "Organic Aerosols", "Complex Hydrocarbons",
		},
	},
	{
		ID:             "proxima-b",
		Name:           "Proxima Centauri b",
		Description:    "An exoplanet in the habitable zone of the nearest star to our solar system.",
		TravelCost:     1500,
		RefuelCost:     120,
		MaxDiscoveries: 20,
		Environment:    "Tidally locked with extreme contrasts",
		DiscoveryPool: []string{
			"Twilight Zone Dwellers", "Heat-resistant Extremophiles", "Stellar Wind Organisms",
			"Magnetic Field Shapers", "Aurora Feeders", "Temperature Gradient Lifeforms",
			"Red Dwarf Adapted Species", "Plasma Clouds", "Radiation-immune Bacteria",
			"Gravitational Anomaly Creatures", "Solar Flare Surfers", "Photosynthetic Variants",
			"Metallic Organisms", "Quantum Entangled Pairs", "Dark Side Ice Beings",
			"Light Side Plasma Forms", "Atmospheric Rivers", "Magnetic Storm Entities",
			"Time-dilation Adapted Life", "Exo-geological Formations",
		},
		Satellites: []Satellite{
			{ID: "proxima-b-i", Name: "Proxima b I", Description: "A hypothetical captured asteroid."},
		},
	},
}

// Default 内置星球目录
func Default() *Catalog {
	c, err := New(HomeBodyID, defaultBodies)
	if err != nil {
		panic(err)
	}
	return c
}
