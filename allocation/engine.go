package allocation

import (
	"context"
	"fmt"
	"sort"
)

// GenerateParams carries everything one generation run needs. The engine
// keeps no state between calls; concurrent runs for different rounds are
// safe, serializing regenerations of the same round is the caller's job.
type GenerateParams struct {
	TournamentID int
	RoundNumber  int
	Pairings     []Pairing
	Tables       []TableDescriptor
	History      HistoryProvider
}

// Engine assigns each game pairing of a round to exactly one table,
// minimizing repeated hardship across the tournament: never reuse a table a
// player already played on, never reuse a terrain a player already saw, and
// otherwise stick to the provider's proposed table numbers.
type Engine struct {
	cost *CostCalculator
}

func NewEngine() *Engine {
	return &Engine{cost: NewCostCalculator()}
}

// Generate produces the round's allocation. Identical inputs always yield
// identical results: there is no randomness and every iteration runs in a
// fixed order. The only fatal conditions are ErrInsufficientTables,
// ErrInvalidPairing and a failing HistoryProvider; detected conflicts are
// returned in the result, never as errors.
func (e *Engine) Generate(ctx context.Context, params GenerateParams) (*AllocationResult, error) {
	if err := validatePairings(params.Pairings); err != nil {
		return nil, err
	}

	var byes, games []Pairing
	for _, p := range params.Pairings {
		if p.IsBye() {
			byes = append(byes, p)
		} else {
			games = append(games, p)
		}
	}

	result := &AllocationResult{
		Assignments: make([]TableAssignment, 0, len(params.Pairings)),
		Conflicts:   []Conflict{},
	}

	for _, p := range byes {
		result.Assignments = append(result.Assignments, TableAssignment{
			Pairing:   p,
			Conflicts: []Conflict{},
			Reason:    "bye: no opponent, no table assigned",
		})
	}

	if params.RoundNumber == 1 {
		if err := e.assignRoundOne(games, params.Tables, result); err != nil {
			return nil, err
		}
	} else {
		if err := e.assignGreedy(ctx, params, games, result); err != nil {
			return nil, err
		}
	}

	result.ConflictCount = len(result.Conflicts)
	return result, nil
}

// assignRoundOne seeds every game pairing directly to its provider-proposed
// table. Round 1 is conflict-free by construction: no prior rounds exist, so
// no history is consulted and no costs are evaluated.
func (e *Engine) assignRoundOne(games []Pairing, tables []TableDescriptor, result *AllocationResult) error {
	terrainByNumber := make(map[int]*string, len(tables))
	for _, t := range tables {
		terrainByNumber[t.TableNumber] = t.TerrainTypeID
	}

	for _, p := range games {
		if p.OriginalTableNumber == nil {
			return fmt.Errorf("%w: round 1 pairing %s vs %s has no proposed table number", ErrInvalidPairing, p.Player1Name, p.Player2Name)
		}
		number := *p.OriginalTableNumber
		result.Assignments = append(result.Assignments, TableAssignment{
			Pairing:       p,
			TableNumber:   &number,
			TerrainTypeID: terrainByNumber[number],
			Conflicts:     []Conflict{},
			Reason:        fmt.Sprintf("round 1: seeded to proposed table %d", number),
		})
	}
	return nil
}

// assignGreedy serves pairings in priority order (higher combined total
// score first, ties broken by player 1's id) and gives each one the
// cheapest table still in the pool, lowest table number winning cost ties.
func (e *Engine) assignGreedy(ctx context.Context, params GenerateParams, games []Pairing, result *AllocationResult) error {
	if len(params.Tables) < len(games) {
		return fmt.Errorf("%w: %d game pairings but only %d tables", ErrInsufficientTables, len(games), len(params.Tables))
	}

	histories, err := fetchHistories(ctx, params, games)
	if err != nil {
		return err
	}

	ordered := make([]Pairing, len(games))
	copy(ordered, games)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].CombinedTotalScore(), ordered[j].CombinedTotalScore()
		if si != sj {
			return si > sj
		}
		return ordered[i].Player1ID < ordered[j].Player1ID
	})

	pool := make([]TableDescriptor, len(params.Tables))
	copy(pool, params.Tables)
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].TableNumber < pool[j].TableNumber
	})

	for _, p := range ordered {
		bestIdx := -1
		var bestBreakdown CostBreakdown
		var bestConflicts []Conflict

		// Strict less-than keeps the first candidate on ties, so the lowest
		// still-available table number always wins when costs are equal.
		for i, t := range pool {
			breakdown, conflicts := e.cost.Cost(p, t, histories[p.Player1ID], histories[*p.Player2ID])
			if bestIdx == -1 || breakdown.Total < bestBreakdown.Total {
				bestIdx = i
				bestBreakdown = breakdown
				bestConflicts = conflicts
			}
		}

		chosen := pool[bestIdx]
		pool = append(pool[:bestIdx], pool[bestIdx+1:]...)

		if bestConflicts == nil {
			bestConflicts = []Conflict{}
		}
		number := chosen.TableNumber
		result.Assignments = append(result.Assignments, TableAssignment{
			Pairing:       p,
			TableNumber:   &number,
			TerrainTypeID: chosen.TerrainTypeID,
			Conflicts:     bestConflicts,
			Reason:        assignmentReason(chosen, bestBreakdown),
		})
		result.Conflicts = append(result.Conflicts, bestConflicts...)
	}
	return nil
}

// fetchHistories loads each distinct player's history exactly once, in the
// order players first appear in the round's game pairings.
func fetchHistories(ctx context.Context, params GenerateParams, games []Pairing) (map[string]*HistoryEntry, error) {
	histories := make(map[string]*HistoryEntry)
	for _, p := range games {
		for _, id := range []string{p.Player1ID, *p.Player2ID} {
			if _, ok := histories[id]; ok {
				continue
			}
			entry, err := params.History.PlayerHistory(ctx, params.TournamentID, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load history for player %s: %w", id, err)
			}
			histories[id] = entry
		}
	}
	return histories, nil
}

func validatePairings(pairings []Pairing) error {
	for i, p := range pairings {
		if p.Player1ID == "" || p.Player1Name == "" {
			return fmt.Errorf("%w: pairing %d has no player 1 identity", ErrInvalidPairing, i)
		}
		if !p.IsBye() && (*p.Player2ID == "" || p.Player2Name == "") {
			return fmt.Errorf("%w: pairing %d has no player 2 identity", ErrInvalidPairing, i)
		}
	}
	return nil
}

func assignmentReason(t TableDescriptor, breakdown CostBreakdown) string {
	if breakdown.Total == 0 {
		return fmt.Sprintf("assigned table %d with no penalties", t.TableNumber)
	}
	return fmt.Sprintf("assigned table %d at cost %d (table reuse %d, terrain reuse %d, proposed table mismatch %d)",
		t.TableNumber, breakdown.Total, breakdown.TableReuseCost, breakdown.TerrainReuseCost, breakdown.BCPMismatchCost)
}
