package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	// Validation and business rules
	ErrPasswordTooShort           = errors.New("password is too short")
	ErrTournamentNameRequired     = errors.New("tournament name is required")
	ErrTournamentInvalidDateRange = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidRounds    = errors.New("tournament rounds planned must be positive")
	ErrTournamentNotLinked        = errors.New("tournament is not linked to a pairings provider event")
	ErrTableNumberInvalid         = errors.New("table numbers must be positive and unique")
	ErrNoTablesConfigured         = errors.New("no tables configured for this tournament")
	ErrRoundNotImported           = errors.New("round pairings have not been imported yet")

	// Conflicts
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrTournamentNameConflict = errors.New("tournament name already exists")

	// Authentication and authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")

	// Entity-specific not-found errors
	ErrUserNotFound       = errors.New("user not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrPlayerNotFound     = errors.New("player not found")
)
