package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/galaxy-explorer/internal/models"
)

func TestSnapshotRepository_Upsert(t *testing.T) {
	db := TestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	snapshot := &models.GameSnapshot{
		UserID:        "u1",
		Credits:       1000,
		Fuel:          100,
		MaxFuel:       100,
		CurrentPlanet: "earth",
	}
	require.NoError(t, repo.Upsert(ctx, snapshot))

	found, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	AssertSnapshot(t, snapshot, found)
	assert.Nil(t, found.LastFreeCreditsAt)

	claimed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := &models.GameSnapshot{
		UserID:            "u1",
		Credits:           950,
		Fuel:              80,
		MaxFuel:           100,
		CurrentPlanet:     "mars",
		TotalDiscoveries:  2,
		LastFreeCreditsAt: &claimed,
	}
	require.NoError(t, repo.Upsert(ctx, updated))

	found, err = repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	AssertSnapshot(t, updated, found)
	require.NotNil(t, found.LastFreeCreditsAt)
	assert.True(t, claimed.Equal(*found.LastFreeCreditsAt))

	var count int64
	db.Model(&models.GameSnapshot{}).Count(&count)
	assert.Equal(t, int64(1), count)

	_, err = repo.FindByUserID(ctx, "u2")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestProfileRepository_Upsert(t *testing.T) {
	db := TestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, repo.Upsert(ctx, &models.PlayerProfile{
		UserID:         "u1",
		CurrentCredits: 1000,
		CurrentFuel:    100,
		CurrentPlanet:  "earth",
	}))
	require.NoError(t, repo.Upsert(ctx, &models.PlayerProfile{
		UserID:           "u1",
		CurrentCredits:   1100,
		CurrentFuel:      100,
		CurrentPlanet:    "earth",
		TotalDiscoveries: 1,
	}))

	found, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1100), found.CurrentCredits)
	assert.Equal(t, 1, found.TotalDiscoveries)
}

func TestExplorationRepository_SetCount(t *testing.T) {
	db := TestDB(t)
	repo := NewExplorationRepository(db)
	ctx := context.Background()

	rows, err := repo.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, repo.SetCount(ctx, "u1", "mars", 1))
	require.NoError(t, repo.SetCount(ctx, "u1", "mars", 2))
	require.NoError(t, repo.SetCount(ctx, "u1", "earth", 1))
	require.NoError(t, repo.SetCount(ctx, "u2", "mars", 5))

	rows, err = repo.ListByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "earth", rows[0].PlanetID)
	assert.Equal(t, 1, rows[0].DiscoveriesCount)
	assert.Equal(t, "mars", rows[1].PlanetID)
	assert.Equal(t, 2, rows[1].DiscoveriesCount)

	rows, err = repo.ListByUserID(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
