package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
	StatusCanceled  TournamentStatus = "canceled"
)

// Tournament is one tabletop event. BCPEventID links it to the external
// pairings provider the rounds are imported from.
type Tournament struct {
	ID            int              `json:"id" db:"id"`
	Name          string           `json:"name" db:"name"`
	Description   *string          `json:"description,omitempty" db:"description"`
	OrganizerID   int              `json:"organizer_id" db:"organizer_id"`
	BCPEventID    *string          `json:"bcp_event_id,omitempty" db:"bcp_event_id"`
	StartDate     time.Time        `json:"start_date" db:"start_date"`
	EndDate       time.Time        `json:"end_date" db:"end_date"`
	Status        TournamentStatus `json:"status" db:"status"`
	RoundsPlanned int              `json:"rounds_planned" db:"rounds_planned"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	LogoKey       *string          `json:"-" db:"logo_key"`
	LogoURL       *string          `json:"logo_url,omitempty" db:"-"`

	// Optional related entities, loaded on demand.
	Organizer *User       `json:"organizer,omitempty" db:"-"`
	Tables    []GameTable `json:"tables,omitempty" db:"-"`
	Rounds    []Round     `json:"rounds,omitempty" db:"-"`
}
