package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "earth", c.Home())
	assert.Len(t, c.Bodies(), 5)
	assert.Empty(t, c.ShortPools())

	mars, ok := c.Get("mars")
	require.True(t, ok)
	assert.Equal(t, int64(200), mars.TravelCost)
	assert.Equal(t, 8, mars.MaxDiscoveries)
	assert.Len(t, mars.Satellites, 2)

	_, ok = c.Get("pluto")
	assert.False(t, ok)
	assert.False(t, c.Has("pluto"))
}

func TestCatalog_ImmutableCopies(t *testing.T) {
	c := Default()

	earth, _ := c.Get("earth")
	earth.DiscoveryPool[0] = "Tampered"
	earth.TravelCost = 999

	again, _ := c.Get("earth")
	assert.Equal(t, "Humans", again.DiscoveryPool[0])
	assert.Equal(t, int64(0), again.TravelCost)

	bodies := c.Bodies()
	bodies[0].Satellites[0].Name = "Tampered"
	again, _ = c.Get("earth")
	assert.Equal(t, "Moon", again.Satellites[0].Name)
}

func TestBody_DiscoveryAt(t *testing.T) {
	b := Body{DiscoveryPool: []string{"a", "b"}}
	assert.Equal(t, "a", b.DiscoveryAt(0))
	assert.Equal(t, "b", b.DiscoveryAt(1))
	assert.Equal(t, UnknownDiscovery, b.DiscoveryAt(2))
	assert.Equal(t, UnknownDiscovery, b.DiscoveryAt(-1))
}

func TestNew_Validation(t *testing.T) {
	ok := Body{ID: "a", MaxDiscoveries: 1}

	tests := []struct {
		name   string
		home   string
		bodies []Body
	}{
		{"缺少id", "a", []Body{ok, {MaxDiscoveries: 1}}},
		{"重复id", "a", []Body{ok, ok}},
		{"负费用", "a", []Body{{ID: "a", MaxDiscoveries: 1, TravelCost: -1}}},
		{"max_discoveries为0", "a", []Body{{ID: "a"}}},
		{"起始星球不存在", "b", []Body{ok}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.home, tt.bodies)
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	data := `
home: alpha
bodies:
  - id: alpha
    name: Alpha
    travel_cost: 0
    refuel_cost: 10
    max_discoveries: 2
    discovery_pool: [Spores]
    satellites:
      - id: alpha-i
        name: Alpha I
  - id: beta
    name: Beta
    travel_cost: 75
    refuel_cost: 15
    max_discoveries: 1
    discovery_pool: [Crystals]
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", c.Home())
	assert.Equal(t, []string{"alpha"}, c.ShortPools())

	beta, ok := c.Get("beta")
	require.True(t, ok)
	assert.Equal(t, int64(75), beta.TravelCost)

	alpha, _ := c.Get("alpha")
	assert.Equal(t, "Alpha I", alpha.Satellites[0].Name)
	assert.Equal(t, UnknownDiscovery, alpha.DiscoveryAt(1))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("bodies: [oops"))
	assert.Error(t, err)
}

func TestLoad_SampleMatchesDefault(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "catalog.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Bodies(), c.Bodies())
	assert.Equal(t, HomeBodyID, c.Home())
}
