package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/tabletourney/tournament-system/models"
	"github.com/tabletourney/tournament-system/repositories"
	"github.com/tabletourney/tournament-system/storage"
)

type TournamentService interface {
	Create(ctx context.Context, organizerID int, tournament *models.Tournament) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, organizerID *int) ([]*models.Tournament, error)
	Update(ctx context.Context, currentUserID int, tournament *models.Tournament) (*models.Tournament, error)
	Delete(ctx context.Context, currentUserID, tournamentID int) error
	ListPlayers(ctx context.Context, tournamentID int) ([]*models.Player, error)
	ReplaceTables(ctx context.Context, currentUserID, tournamentID int, tables []models.GameTable) ([]models.GameTable, error)
	UploadLogo(ctx context.Context, currentUserID, tournamentID int, contentType string, file io.Reader) (string, error)
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	tableRepo      repositories.TableRepository
	playerRepo     repositories.PlayerRepository
	uploader       storage.FileUploader
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	tableRepo repositories.TableRepository,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		tableRepo:      tableRepo,
		playerRepo:     playerRepo,
		uploader:       uploader,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, t *models.Tournament) (*models.Tournament, error) {
	if err := validateTournament(t); err != nil {
		return nil, err
	}

	t.OrganizerID = organizerID
	if t.Status == "" {
		t.Status = models.StatusDraft
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}

	tables, err := s.tableRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables for tournament %d: %w", id, err)
	}
	t.Tables = make([]models.GameTable, len(tables))
	for i, table := range tables {
		t.Tables[i] = *table
	}

	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, organizerID *int) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, t := range tournaments {
		s.attachLogoURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, currentUserID int, t *models.Tournament) (*models.Tournament, error) {
	existing, err := s.requireOwnedTournament(ctx, currentUserID, t.ID)
	if err != nil {
		return nil, err
	}
	if err := validateTournament(t); err != nil {
		return nil, err
	}

	t.OrganizerID = existing.OrganizerID
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to update tournament %d: %w", t.ID, err)
	}
	return s.GetByID(ctx, t.ID)
}

func (s *tournamentService) Delete(ctx context.Context, currentUserID, tournamentID int) error {
	if _, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", tournamentID, err)
	}
	return nil
}

// ListPlayers returns the tournament roster, best total score first.
func (s *tournamentService) ListPlayers(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	players, err := s.playerRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players for tournament %d: %w", tournamentID, err)
	}
	return players, nil
}

func (s *tournamentService) ReplaceTables(ctx context.Context, currentUserID, tournamentID int, tables []models.GameTable) ([]models.GameTable, error) {
	if _, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID); err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(tables))
	for _, t := range tables {
		if t.Number <= 0 || seen[t.Number] {
			return nil, fmt.Errorf("%w: table %d", ErrTableNumberInvalid, t.Number)
		}
		seen[t.Number] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.tableRepo.ReplaceForTournament(ctx, tx, tournamentID, tables); err != nil {
		if errors.Is(err, repositories.ErrTableNumberConflict) {
			return nil, ErrTableNumberInvalid
		}
		return nil, fmt.Errorf("failed to replace tables for tournament %d: %w", tournamentID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit table replacement: %w", err)
	}
	return tables, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, currentUserID, tournamentID int, contentType string, file io.Reader) (string, error) {
	t, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("tournaments/%d/logo", t.ID)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return "", fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, t.ID, &result.Key); err != nil {
		return "", fmt.Errorf("failed to store tournament logo key: %w", err)
	}
	return result.Location, nil
}

// requireOwnedTournament loads the tournament and checks the current user
// is its organizer. Mutations always go through this gate.
func (s *tournamentService) requireOwnedTournament(ctx context.Context, currentUserID, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if t.OrganizerID != currentUserID {
		return nil, ErrForbiddenOperation
	}
	return t, nil
}

func (s *tournamentService) attachLogoURL(t *models.Tournament) {
	if t.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		t.LogoURL = &url
	}
}

func validateTournament(t *models.Tournament) error {
	if t.Name == "" {
		return ErrTournamentNameRequired
	}
	if !t.EndDate.After(t.StartDate) {
		return ErrTournamentInvalidDateRange
	}
	if t.RoundsPlanned <= 0 {
		return ErrTournamentInvalidRounds
	}
	return nil
}
