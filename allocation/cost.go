package allocation

import (
	"fmt"
	"strings"
)

// The weight gap between the tiers is deliberately wide: no number of
// lower-tier penalties can ever outweigh a single higher-tier one, so the
// cost is a strict lexicographic priority (table reuse > terrain reuse >
// proposed-table mismatch), not a tunable trade-off.
const (
	tableReuseWeight   = 100000
	terrainReuseWeight = 10000
	mismatchWeight     = 1
)

// CostCalculator scores a (pairing, table) candidate. It is stateless; Cost
// is a pure function of its inputs.
type CostCalculator struct{}

func NewCostCalculator() *CostCalculator {
	return &CostCalculator{}
}

// Cost computes the penalty of assigning pairing p to table t, given both
// players' prior-round history. hist2 must be nil when p is a bye. Non-zero
// table and terrain components are reported as conflicts; the mismatch
// component is a preference signal only and never surfaces as a conflict.
func (c *CostCalculator) Cost(p Pairing, t TableDescriptor, hist1, hist2 *HistoryEntry) (CostBreakdown, []Conflict) {
	var breakdown CostBreakdown
	var conflicts []Conflict

	if reused := playersWithTable(p, t.TableNumber, hist1, hist2); len(reused) > 0 {
		breakdown.TableReuseCost = tableReuseWeight
		conflicts = append(conflicts, Conflict{
			Type:    ConflictTableReuse,
			Message: fmt.Sprintf("%s already played on table %d", joinPlayerNames(reused), t.TableNumber),
		})
	}

	if t.TerrainTypeID != nil {
		if seen := playersWithTerrain(p, *t.TerrainTypeID, hist1, hist2); len(seen) > 0 {
			breakdown.TerrainReuseCost = terrainReuseWeight
			conflicts = append(conflicts, Conflict{
				Type:    ConflictTerrainReuse,
				Message: fmt.Sprintf("%s already played on terrain %q (table %d)", joinPlayerNames(seen), *t.TerrainTypeID, t.TableNumber),
			})
		}
	}

	if p.OriginalTableNumber != nil && *p.OriginalTableNumber != t.TableNumber {
		breakdown.BCPMismatchCost = mismatchWeight
	}

	breakdown.Total = breakdown.TableReuseCost + breakdown.TerrainReuseCost + breakdown.BCPMismatchCost
	return breakdown, conflicts
}

func playersWithTable(p Pairing, tableNumber int, hist1, hist2 *HistoryEntry) []string {
	var names []string
	if hist1 != nil && hist1.Tables[tableNumber] {
		names = append(names, p.Player1Name)
	}
	if !p.IsBye() && hist2 != nil && hist2.Tables[tableNumber] {
		names = append(names, p.Player2Name)
	}
	return names
}

func playersWithTerrain(p Pairing, terrainTypeID string, hist1, hist2 *HistoryEntry) []string {
	var names []string
	if hist1 != nil && hist1.TerrainTypes[terrainTypeID] {
		names = append(names, p.Player1Name)
	}
	if !p.IsBye() && hist2 != nil && hist2.TerrainTypes[terrainTypeID] {
		names = append(names, p.Player2Name)
	}
	return names
}

func joinPlayerNames(names []string) string {
	switch len(names) {
	case 1:
		return "player " + names[0]
	default:
		return "players " + strings.Join(names, " and ")
	}
}
