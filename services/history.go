package services

import (
	"context"
	"fmt"

	"github.com/tabletourney/tournament-system/allocation"
	"github.com/tabletourney/tournament-system/repositories"
)

// allocationHistoryProvider adapts the allocation repository to the engine's
// HistoryProvider interface, scoped to rounds strictly before the one being
// generated. A fresh provider is built per generation run so regenerations
// always see current history.
type allocationHistoryProvider struct {
	allocationRepo repositories.AllocationRepository
	beforeRound    int
}

func newAllocationHistoryProvider(allocationRepo repositories.AllocationRepository, beforeRound int) allocation.HistoryProvider {
	return &allocationHistoryProvider{
		allocationRepo: allocationRepo,
		beforeRound:    beforeRound,
	}
}

func (p *allocationHistoryProvider) PlayerHistory(ctx context.Context, tournamentID int, playerID string) (*allocation.HistoryEntry, error) {
	history, err := p.allocationRepo.GetPlayerHistory(ctx, tournamentID, playerID, p.beforeRound)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation history for player %s: %w", playerID, err)
	}

	entry := allocation.NewHistoryEntry()
	for _, number := range history.TableNumbers {
		entry.Tables[number] = true
	}
	for _, terrainTypeID := range history.TerrainTypeIDs {
		entry.TerrainTypes[terrainTypeID] = true
	}
	return entry, nil
}
