package models

import "time"

// RoundStatus mirrors the round_status ENUM in the database.
type RoundStatus string

const (
	RoundStatusDraft     RoundStatus = "draft"
	RoundStatusPublished RoundStatus = "published"
)

type Round struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Number       int         `json:"number" db:"number"`
	Status       RoundStatus `json:"status" db:"status"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`

	Pairings []RoundPairing `json:"pairings,omitempty" db:"-"`
}

// RoundPairing is a pairing as imported from the external provider and
// stored with the round. Player2BCPID is nil for a bye.
// OriginalTableNumber is the table the provider proposed, kept as a soft
// preference for the allocation engine.
type RoundPairing struct {
	ID                  int     `json:"id" db:"id"`
	RoundID             int     `json:"round_id" db:"round_id"`
	Player1BCPID        string  `json:"player1_bcp_id" db:"player1_bcp_id"`
	Player1Name         string  `json:"player1_name" db:"player1_name"`
	Player1RoundScore   int     `json:"player1_round_score" db:"player1_round_score"`
	Player1TotalScore   int     `json:"player1_total_score" db:"player1_total_score"`
	Player2BCPID        *string `json:"player2_bcp_id,omitempty" db:"player2_bcp_id"`
	Player2Name         string  `json:"player2_name" db:"player2_name"`
	Player2RoundScore   int     `json:"player2_round_score" db:"player2_round_score"`
	Player2TotalScore   int     `json:"player2_total_score" db:"player2_total_score"`
	OriginalTableNumber *int    `json:"original_table_number,omitempty" db:"original_table_number"`
}
