package models

import "time"

// Player is a tournament roster entry. BCPPlayerID is the external
// identifier the pairings provider uses for this player; it is the key
// all pairing and history lookups go through.
type Player struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	BCPPlayerID  string    `json:"bcp_player_id" db:"bcp_player_id"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	TotalScore   int       `json:"total_score" db:"total_score"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
