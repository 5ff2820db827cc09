package models

import "time"

// TableAllocation is one persisted row of an allocation result: a pairing
// placed on a table (or no table for a bye) for a given round. ConflictsJSON
// carries the engine's conflict list verbatim so the UI can surface it
// without re-running the engine. GenerationID groups the rows written by a
// single generation run.
type TableAllocation struct {
	ID            int       `json:"id" db:"id"`
	RoundID       int       `json:"round_id" db:"round_id"`
	GenerationID  string    `json:"generation_id" db:"generation_id"`
	TableNumber   *int      `json:"table_number,omitempty" db:"table_number"`
	TerrainTypeID *string   `json:"terrain_type_id,omitempty" db:"terrain_type_id"`
	Player1BCPID  string    `json:"player1_bcp_id" db:"player1_bcp_id"`
	Player1Name   string    `json:"player1_name" db:"player1_name"`
	Player1Score  int       `json:"player1_score" db:"player1_score"`
	Player2BCPID  *string   `json:"player2_bcp_id,omitempty" db:"player2_bcp_id"`
	Player2Name   string    `json:"player2_name" db:"player2_name"`
	Player2Score  int       `json:"player2_score" db:"player2_score"`
	ConflictsJSON *string   `json:"-" db:"conflicts"`
	Reason        string    `json:"reason" db:"reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
