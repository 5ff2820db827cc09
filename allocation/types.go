package allocation

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientTables is fatal: fewer tables were supplied than game
	// pairings that need one. Nothing is assigned when it is returned.
	ErrInsufficientTables = errors.New("not enough tables for the round's game pairings")

	// ErrInvalidPairing is fatal: a pairing is missing identity fields
	// required for a non-bye side.
	ErrInvalidPairing = errors.New("invalid pairing")
)

// Pairing is one imported pairing of a round, immutable for the duration of
// a generation run. Player2ID == nil means player 1 has a bye.
// OriginalTableNumber is the table number proposed by the external pairings
// provider, used as a soft preference only.
type Pairing struct {
	Player1ID           string  `json:"player1_id"`
	Player1Name         string  `json:"player1_name"`
	Player1RoundScore   int     `json:"player1_round_score"`
	Player1TotalScore   int     `json:"player1_total_score"`
	Player2ID           *string `json:"player2_id,omitempty"`
	Player2Name         string  `json:"player2_name,omitempty"`
	Player2RoundScore   int     `json:"player2_round_score,omitempty"`
	Player2TotalScore   int     `json:"player2_total_score,omitempty"`
	OriginalTableNumber *int    `json:"original_table_number,omitempty"`
}

// IsBye reports whether the pairing has no opponent. A bye never receives a
// table and never produces conflicts.
func (p Pairing) IsBye() bool {
	return p.Player2ID == nil
}

// CombinedTotalScore is the pairing's sort key component: the sum of both
// players' cumulative tournament scores (just player 1's for a bye).
func (p Pairing) CombinedTotalScore() int {
	if p.IsBye() {
		return p.Player1TotalScore
	}
	return p.Player1TotalScore + p.Player2TotalScore
}

// TableDescriptor is one physical table available for the round.
// TerrainTypeID is nil for untagged tables.
type TableDescriptor struct {
	TableNumber   int     `json:"table_number"`
	TerrainTypeID *string `json:"terrain_type_id,omitempty"`
}

// HistoryEntry holds what one player has already been exposed to in rounds
// strictly before the one being allocated. Read-only to the engine.
type HistoryEntry struct {
	Tables       map[int]bool
	TerrainTypes map[string]bool
}

func NewHistoryEntry() *HistoryEntry {
	return &HistoryEntry{
		Tables:       make(map[int]bool),
		TerrainTypes: make(map[string]bool),
	}
}

// HistoryProvider supplies per-player history. The engine never caches
// entries across Generate calls; the caller owns history freshness.
type HistoryProvider interface {
	PlayerHistory(ctx context.Context, tournamentID int, playerID string) (*HistoryEntry, error)
}

type ConflictType string

const (
	ConflictTableReuse   ConflictType = "TABLE_REUSE"
	ConflictTerrainReuse ConflictType = "TERRAIN_REUSE"
)

// Conflict is a detected, non-fatal constraint violation attached to a
// specific assignment. Conflicts are first-class output, never errors.
type Conflict struct {
	Type    ConflictType `json:"type"`
	Message string       `json:"message"`
}

// CostBreakdown is the per-candidate evaluation of placing one pairing on
// one table. Produced and consumed entirely inside one generation pass.
type CostBreakdown struct {
	TableReuseCost   int `json:"table_reuse_cost"`
	TerrainReuseCost int `json:"terrain_reuse_cost"`
	BCPMismatchCost  int `json:"bcp_mismatch_cost"`
	Total            int `json:"total"`
}

// TableAssignment is one pairing's final placement. TableNumber is nil for
// a bye.
type TableAssignment struct {
	Pairing       Pairing    `json:"pairing"`
	TableNumber   *int       `json:"table_number,omitempty"`
	TerrainTypeID *string    `json:"terrain_type_id,omitempty"`
	Conflicts     []Conflict `json:"conflicts"`
	Reason        string     `json:"reason"`
}

// AllocationResult is the complete output of one generation run. It is
// produced fresh on every call and never mutated afterward.
type AllocationResult struct {
	Assignments   []TableAssignment `json:"assignments"`
	Conflicts     []Conflict        `json:"conflicts"`
	ConflictCount int               `json:"conflict_count"`
}
