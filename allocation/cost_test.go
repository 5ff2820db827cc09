package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostCleanCandidateIsFree(t *testing.T) {
	calc := NewCostCalculator()
	p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, nil)

	breakdown, conflicts := calc.Cost(p, TableDescriptor{TableNumber: 5}, NewHistoryEntry(), NewHistoryEntry())

	assert.Equal(t, CostBreakdown{}, breakdown)
	assert.Empty(t, conflicts)
}

func TestCostTableReuseEitherPlayer(t *testing.T) {
	calc := NewCostCalculator()
	p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, nil)
	table := TableDescriptor{TableNumber: 3}

	cases := []struct {
		name         string
		hist1, hist2 *HistoryEntry
		wantNames    []string
	}{
		{"player 1 reuse", historyWithTables(3), NewHistoryEntry(), []string{"Alice"}},
		{"player 2 reuse", NewHistoryEntry(), historyWithTables(3), []string{"Bob"}},
		{"both players reuse", historyWithTables(3), historyWithTables(3), []string{"Alice", "Bob"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			breakdown, conflicts := calc.Cost(p, table, tc.hist1, tc.hist2)
			assert.Equal(t, tableReuseWeight, breakdown.TableReuseCost)
			assert.Equal(t, tableReuseWeight, breakdown.Total)
			require.Len(t, conflicts, 1)
			assert.Equal(t, ConflictTableReuse, conflicts[0].Type)
			for _, name := range tc.wantNames {
				assert.Contains(t, conflicts[0].Message, name)
			}
		})
	}
}

func TestCostTerrainReuse(t *testing.T) {
	calc := NewCostCalculator()
	p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, nil)
	hist := NewHistoryEntry()
	hist.TerrainTypes["forest"] = true

	breakdown, conflicts := calc.Cost(p, TableDescriptor{TableNumber: 3, TerrainTypeID: strPtr("forest")}, hist, NewHistoryEntry())

	assert.Equal(t, terrainReuseWeight, breakdown.TerrainReuseCost)
	assert.Equal(t, terrainReuseWeight, breakdown.Total)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictTerrainReuse, conflicts[0].Type)
	assert.Contains(t, conflicts[0].Message, "Alice")
	assert.Contains(t, conflicts[0].Message, "forest")
}

func TestCostUntaggedTableNeverCostsTerrain(t *testing.T) {
	calc := NewCostCalculator()
	p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, nil)
	hist := NewHistoryEntry()
	hist.TerrainTypes["forest"] = true

	breakdown, conflicts := calc.Cost(p, TableDescriptor{TableNumber: 3}, hist, NewHistoryEntry())

	assert.Zero(t, breakdown.TerrainReuseCost)
	assert.Empty(t, conflicts)
}

func TestCostProposedTableMismatch(t *testing.T) {
	calc := NewCostCalculator()

	t.Run("differing table costs the flat penalty", func(t *testing.T) {
		p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, intPtr(4))
		breakdown, conflicts := calc.Cost(p, TableDescriptor{TableNumber: 3}, NewHistoryEntry(), NewHistoryEntry())
		assert.Equal(t, mismatchWeight, breakdown.BCPMismatchCost)
		assert.Equal(t, mismatchWeight, breakdown.Total)
		// The mismatch is a preference signal only, never a conflict.
		assert.Empty(t, conflicts)
	})

	t.Run("matching table is free", func(t *testing.T) {
		p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, intPtr(3))
		breakdown, _ := calc.Cost(p, TableDescriptor{TableNumber: 3}, NewHistoryEntry(), NewHistoryEntry())
		assert.Zero(t, breakdown.BCPMismatchCost)
	})

	t.Run("no proposed table means no preference", func(t *testing.T) {
		p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, nil)
		breakdown, _ := calc.Cost(p, TableDescriptor{TableNumber: 3}, NewHistoryEntry(), NewHistoryEntry())
		assert.Zero(t, breakdown.BCPMismatchCost)
	})
}

func TestCostByePairingIgnoresSecondSide(t *testing.T) {
	calc := NewCostCalculator()
	bye := Pairing{Player1ID: "p1", Player1Name: "Alice"}

	breakdown, conflicts := calc.Cost(bye, TableDescriptor{TableNumber: 3}, NewHistoryEntry(), nil)

	assert.Zero(t, breakdown.Total)
	assert.Empty(t, conflicts)
}

func TestCostTiersAreLexicographic(t *testing.T) {
	// A single higher-tier violation must always outweigh any realistic
	// combination of lower-tier ones.
	assert.Greater(t, tableReuseWeight, terrainReuseWeight+mismatchWeight)
	assert.Greater(t, terrainReuseWeight, mismatchWeight)
	assert.Positive(t, mismatchWeight)

	calc := NewCostCalculator()
	p := gamePairing("p1", "Alice", "p2", "Bob", 0, 0, intPtr(1))

	histTable := historyWithTables(1)
	tableReuse, _ := calc.Cost(p, TableDescriptor{TableNumber: 1}, histTable, NewHistoryEntry())

	histTerrain := NewHistoryEntry()
	histTerrain.TerrainTypes["forest"] = true
	terrainReuseAndMismatch, _ := calc.Cost(p, TableDescriptor{TableNumber: 2, TerrainTypeID: strPtr("forest")}, histTerrain, NewHistoryEntry())

	assert.Greater(t, tableReuse.Total, terrainReuseAndMismatch.Total)
}
