package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tabletourney/tournament-system/allocation"
	"github.com/tabletourney/tournament-system/bcp"
	"github.com/tabletourney/tournament-system/models"
	"github.com/tabletourney/tournament-system/repositories"
)

// PairingsProvider is the slice of the bcp client the round service needs;
// tests substitute an in-memory implementation.
type PairingsProvider interface {
	GetRoundPairings(ctx context.Context, eventID string, round int) ([]bcp.Pairing, error)
}

// AllocationNotifier is the slice of the websocket hub the round service
// uses; tests substitute a recording fake.
type AllocationNotifier interface {
	BroadcastToRoom(roomID string, message allocation.Message)
}

type RoundService interface {
	// ImportRound pulls the round's pairings from the external provider and
	// stores them with the tournament roster. Re-importing replaces the
	// previous import.
	ImportRound(ctx context.Context, currentUserID, tournamentID, roundNumber int) (*models.Round, error)

	// GenerateAllocations runs the allocation engine for an imported round.
	// With preview set the result is returned without persisting anything;
	// otherwise the round's stored allocations are replaced transactionally
	// and subscribers of the tournament room are notified. Regenerating is
	// the same call again: identical history yields an identical result.
	GenerateAllocations(ctx context.Context, currentUserID, tournamentID, roundNumber int, preview bool) (*allocation.AllocationResult, error)

	GetAllocations(ctx context.Context, tournamentID, roundNumber int) ([]*models.TableAllocation, error)
	PublishRound(ctx context.Context, currentUserID, tournamentID, roundNumber int) error

	// GetPlayerHistory returns one player's roster entry together with every
	// table and terrain they have been allocated so far in the tournament.
	GetPlayerHistory(ctx context.Context, tournamentID int, bcpPlayerID string) (*PlayerHistory, error)
}

// PlayerHistory is the per-player exposure summary served to organizers.
type PlayerHistory struct {
	Player         *models.Player `json:"player"`
	TableNumbers   []int          `json:"table_numbers"`
	TerrainTypeIDs []string       `json:"terrain_type_ids"`
}

type roundService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	playerRepo     repositories.PlayerRepository
	tableRepo      repositories.TableRepository
	allocationRepo repositories.AllocationRepository
	pairings       PairingsProvider
	engine         *allocation.Engine
	hub            AllocationNotifier
	logger         *slog.Logger
}

func NewRoundService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	playerRepo repositories.PlayerRepository,
	tableRepo repositories.TableRepository,
	allocationRepo repositories.AllocationRepository,
	pairings PairingsProvider,
	hub AllocationNotifier,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		db:             db,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		playerRepo:     playerRepo,
		tableRepo:      tableRepo,
		allocationRepo: allocationRepo,
		pairings:       pairings,
		engine:         allocation.NewEngine(),
		hub:            hub,
		logger:         logger,
	}
}

func (s *roundService) ImportRound(ctx context.Context, currentUserID, tournamentID, roundNumber int) (*models.Round, error) {
	tournament, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.BCPEventID == nil {
		return nil, ErrTournamentNotLinked
	}

	imported, err := s.pairings.GetRoundPairings(ctx, *tournament.BCPEventID, roundNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pairings for round %d: %w", roundNumber, err)
	}

	pairings := make([]models.RoundPairing, 0, len(imported))
	for _, p := range imported {
		pairing := models.RoundPairing{
			Player1BCPID:        p.Player1.ID,
			Player1Name:         p.Player1.Name,
			Player1RoundScore:   p.Player1.RoundScore,
			Player1TotalScore:   p.Player1.TotalScore,
			OriginalTableNumber: p.TableNumber,
		}
		if p.Player2 != nil {
			id := p.Player2.ID
			pairing.Player2BCPID = &id
			pairing.Player2Name = p.Player2.Name
			pairing.Player2RoundScore = p.Player2.RoundScore
			pairing.Player2TotalScore = p.Player2.TotalScore
		}
		pairings = append(pairings, pairing)
	}

	round := &models.Round{
		TournamentID: tournamentID,
		Number:       roundNumber,
		Status:       models.RoundStatusDraft,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.roundRepo.UpsertWithPairings(ctx, tx, round, pairings); err != nil {
		return nil, err
	}
	if err := s.upsertRoster(ctx, tx, tournamentID, imported); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round import: %w", err)
	}

	s.logger.Info("round pairings imported",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", roundNumber),
		slog.Int("pairings", len(pairings)),
	)

	round.Pairings = pairings
	return round, nil
}

// upsertRoster refreshes the roster entries for every player appearing in
// the imported pairings, first appearance order.
func (s *roundService) upsertRoster(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, imported []bcp.Pairing) error {
	seen := make(map[string]bool)
	upsert := func(ref bcp.PlayerRef) error {
		if seen[ref.ID] {
			return nil
		}
		seen[ref.ID] = true
		return s.playerRepo.Upsert(ctx, exec, &models.Player{
			TournamentID: tournamentID,
			BCPPlayerID:  ref.ID,
			DisplayName:  ref.Name,
			TotalScore:   ref.TotalScore,
		})
	}

	for _, p := range imported {
		if err := upsert(p.Player1); err != nil {
			return err
		}
		if p.Player2 != nil {
			if err := upsert(*p.Player2); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *roundService) GenerateAllocations(ctx context.Context, currentUserID, tournamentID, roundNumber int, preview bool) (*allocation.AllocationResult, error) {
	if _, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID); err != nil {
		return nil, err
	}

	round, err := s.roundRepo.GetByNumber(ctx, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotImported
		}
		return nil, fmt.Errorf("failed to load round %d: %w", roundNumber, err)
	}

	var storedPairings []*models.RoundPairing
	var storedTables []*models.GameTable

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var loadErr error
		storedPairings, loadErr = s.roundRepo.ListPairings(gCtx, round.ID)
		return loadErr
	})
	g.Go(func() error {
		var loadErr error
		storedTables, loadErr = s.tableRepo.ListByTournament(gCtx, tournamentID)
		return loadErr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load round %d inputs: %w", roundNumber, err)
	}

	if len(storedTables) == 0 {
		return nil, ErrNoTablesConfigured
	}

	params := allocation.GenerateParams{
		TournamentID: tournamentID,
		RoundNumber:  roundNumber,
		Pairings:     toEnginePairings(storedPairings),
		Tables:       toEngineTables(storedTables),
		History:      newAllocationHistoryProvider(s.allocationRepo, roundNumber),
	}

	result, err := s.engine.Generate(ctx, params)
	if err != nil {
		return nil, err
	}

	if preview {
		return result, nil
	}

	generationID := uuid.NewString()
	rows, err := toAllocationRows(result, generationID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.allocationRepo.ReplaceForRound(ctx, tx, round.ID, rows); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocations for round %d: %w", roundNumber, err)
	}

	s.logger.Info("round allocations generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", roundNumber),
		slog.String("generation_id", generationID),
		slog.Int("assignments", len(result.Assignments)),
		slog.Int("conflicts", result.ConflictCount),
	)

	s.hub.BroadcastToRoom(allocation.TournamentRoom(tournamentID), allocation.Message{
		Type:    allocation.MessageTypeAllocationsUpdated,
		Payload: result,
		RoomID:  allocation.TournamentRoom(tournamentID),
	})

	return result, nil
}

func (s *roundService) GetAllocations(ctx context.Context, tournamentID, roundNumber int) ([]*models.TableAllocation, error) {
	round, err := s.roundRepo.GetByNumber(ctx, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to load round %d: %w", roundNumber, err)
	}
	return s.allocationRepo.ListByRound(ctx, round.ID)
}

func (s *roundService) PublishRound(ctx context.Context, currentUserID, tournamentID, roundNumber int) error {
	if _, err := s.requireOwnedTournament(ctx, currentUserID, tournamentID); err != nil {
		return err
	}
	round, err := s.roundRepo.GetByNumber(ctx, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return ErrRoundNotFound
		}
		return fmt.Errorf("failed to load round %d: %w", roundNumber, err)
	}
	return s.roundRepo.UpdateStatus(ctx, round.ID, models.RoundStatusPublished)
}

func (s *roundService) GetPlayerHistory(ctx context.Context, tournamentID int, bcpPlayerID string) (*PlayerHistory, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	player, err := s.playerRepo.GetByBCPID(ctx, tournamentID, bcpPlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to load player %s: %w", bcpPlayerID, err)
	}

	history, err := s.allocationRepo.GetPlayerHistory(ctx, tournamentID, bcpPlayerID, tournament.RoundsPlanned+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation history for player %s: %w", bcpPlayerID, err)
	}

	return &PlayerHistory{
		Player:         player,
		TableNumbers:   history.TableNumbers,
		TerrainTypeIDs: history.TerrainTypeIDs,
	}, nil
}

func (s *roundService) requireOwnedTournament(ctx context.Context, currentUserID, tournamentID int) (*models.Tournament, error) {
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

func toEnginePairings(stored []*models.RoundPairing) []allocation.Pairing {
	pairings := make([]allocation.Pairing, 0, len(stored))
	for _, p := range stored {
		pairings = append(pairings, allocation.Pairing{
			Player1ID:           p.Player1BCPID,
			Player1Name:         p.Player1Name,
			Player1RoundScore:   p.Player1RoundScore,
			Player1TotalScore:   p.Player1TotalScore,
			Player2ID:           p.Player2BCPID,
			Player2Name:         p.Player2Name,
			Player2RoundScore:   p.Player2RoundScore,
			Player2TotalScore:   p.Player2TotalScore,
			OriginalTableNumber: p.OriginalTableNumber,
		})
	}
	return pairings
}

func toEngineTables(stored []*models.GameTable) []allocation.TableDescriptor {
	tables := make([]allocation.TableDescriptor, 0, len(stored))
	for _, t := range stored {
		tables = append(tables, allocation.TableDescriptor{
			TableNumber:   t.Number,
			TerrainTypeID: t.TerrainTypeID,
		})
	}
	return tables
}

func toAllocationRows(result *allocation.AllocationResult, generationID string) ([]models.TableAllocation, error) {
	rows := make([]models.TableAllocation, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		conflictsJSON, err := json.Marshal(a.Conflicts)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conflicts: %w", err)
		}
		conflicts := string(conflictsJSON)

		row := models.TableAllocation{
			GenerationID:  generationID,
			TableNumber:   a.TableNumber,
			TerrainTypeID: a.TerrainTypeID,
			Player1BCPID:  a.Pairing.Player1ID,
			Player1Name:   a.Pairing.Player1Name,
			Player1Score:  a.Pairing.Player1TotalScore,
			Player2BCPID:  a.Pairing.Player2ID,
			Player2Name:   a.Pairing.Player2Name,
			Player2Score:  a.Pairing.Player2TotalScore,
			ConflictsJSON: &conflicts,
			Reason:        a.Reason,
		}
		rows = append(rows, row)
	}
	return rows, nil
}
