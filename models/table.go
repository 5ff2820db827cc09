package models

// GameTable is one physical table configured for a tournament.
// TerrainTypeID is optional; tables without a terrain tag never produce
// terrain conflicts.
type GameTable struct {
	ID            int     `json:"id" db:"id"`
	TournamentID  int     `json:"tournament_id" db:"tournament_id"`
	Number        int     `json:"number" db:"number"`
	TerrainTypeID *string `json:"terrain_type_id,omitempty" db:"terrain_type_id"`
	TerrainName   *string `json:"terrain_name,omitempty" db:"terrain_name"`
}
