package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletourney/tournament-system/repositories"
)

func TestAllocationHistoryProviderBuildsEntry(t *testing.T) {
	repo := &fakeAllocationRepo{
		history: map[string]*repositories.PlayerAllocationHistory{
			"p1": {TableNumbers: []int{1, 4}, TerrainTypeIDs: []string{"forest"}},
		},
	}

	provider := newAllocationHistoryProvider(repo, 3)

	entry, err := provider.PlayerHistory(context.Background(), testTournamentID, "p1")
	require.NoError(t, err)
	assert.True(t, entry.Tables[1])
	assert.True(t, entry.Tables[4])
	assert.False(t, entry.Tables[2])
	assert.True(t, entry.TerrainTypes["forest"])
}

func TestAllocationHistoryProviderEmptyHistory(t *testing.T) {
	provider := newAllocationHistoryProvider(&fakeAllocationRepo{}, 1)

	entry, err := provider.PlayerHistory(context.Background(), testTournamentID, "new-player")
	require.NoError(t, err)
	assert.Empty(t, entry.Tables)
	assert.Empty(t, entry.TerrainTypes)
}
