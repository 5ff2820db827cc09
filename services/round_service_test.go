package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletourney/tournament-system/allocation"
	"github.com/tabletourney/tournament-system/bcp"
	"github.com/tabletourney/tournament-system/models"
	"github.com/tabletourney/tournament-system/repositories"
)

const (
	testOrganizerID  = 7
	testTournamentID = 1
)

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error { return nil }
func (f *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return t, nil
}
func (f *fakeTournamentRepo) List(ctx context.Context, organizerID *int) ([]*models.Tournament, error) {
	return nil, nil
}
func (f *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error { return nil }
func (f *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	return nil
}
func (f *fakeTournamentRepo) Delete(ctx context.Context, id int) error { return nil }

type fakeRoundRepo struct {
	rounds   map[int]*models.Round // keyed by round number
	pairings map[int][]*models.RoundPairing
	statuses map[int]models.RoundStatus
}

func (f *fakeRoundRepo) UpsertWithPairings(ctx context.Context, exec repositories.SQLExecutor, round *models.Round, pairings []models.RoundPairing) error {
	return nil
}
func (f *fakeRoundRepo) GetByNumber(ctx context.Context, tournamentID, number int) (*models.Round, error) {
	r, ok := f.rounds[number]
	if !ok {
		return nil, repositories.ErrRoundNotFound
	}
	return r, nil
}
func (f *fakeRoundRepo) ListPairings(ctx context.Context, roundID int) ([]*models.RoundPairing, error) {
	return f.pairings[roundID], nil
}
func (f *fakeRoundRepo) UpdateStatus(ctx context.Context, id int, status models.RoundStatus) error {
	if f.statuses == nil {
		f.statuses = make(map[int]models.RoundStatus)
	}
	f.statuses[id] = status
	return nil
}

type fakePlayerRepo struct {
	players map[string]*models.Player
}

func (f *fakePlayerRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, p *models.Player) error {
	return nil
}
func (f *fakePlayerRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	return nil, nil
}
func (f *fakePlayerRepo) GetByBCPID(ctx context.Context, tournamentID int, bcpPlayerID string) (*models.Player, error) {
	if p, ok := f.players[bcpPlayerID]; ok {
		return p, nil
	}
	return nil, repositories.ErrPlayerNotFound
}

type fakeTableRepo struct {
	tables []*models.GameTable
}

func (f *fakeTableRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, tables []models.GameTable) error {
	return nil
}
func (f *fakeTableRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error) {
	return f.tables, nil
}

type fakeAllocationRepo struct {
	history map[string]*repositories.PlayerAllocationHistory
	stored  map[int][]*models.TableAllocation

	replaceCalls int
	lastRoundID  int
	lastRows     []models.TableAllocation
}

func (f *fakeAllocationRepo) ReplaceForRound(ctx context.Context, exec repositories.SQLExecutor, roundID int, allocations []models.TableAllocation) error {
	f.replaceCalls++
	f.lastRoundID = roundID
	f.lastRows = allocations
	return nil
}
func (f *fakeAllocationRepo) ListByRound(ctx context.Context, roundID int) ([]*models.TableAllocation, error) {
	return f.stored[roundID], nil
}
func (f *fakeAllocationRepo) GetPlayerHistory(ctx context.Context, tournamentID int, bcpPlayerID string, beforeRound int) (*repositories.PlayerAllocationHistory, error) {
	if h, ok := f.history[bcpPlayerID]; ok {
		return h, nil
	}
	return &repositories.PlayerAllocationHistory{}, nil
}

type fakeNotifier struct {
	rooms    []string
	messages []allocation.Message
}

func (f *fakeNotifier) BroadcastToRoom(roomID string, message allocation.Message) {
	f.rooms = append(f.rooms, roomID)
	f.messages = append(f.messages, message)
}

type fakePairingsProvider struct {
	pairings []bcp.Pairing
	err      error
}

func (f *fakePairingsProvider) GetRoundPairings(ctx context.Context, eventID string, round int) ([]bcp.Pairing, error) {
	return f.pairings, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTournament() *models.Tournament {
	eventID := "evt-123"
	return &models.Tournament{
		ID:          testTournamentID,
		Name:        "Autumn Open",
		OrganizerID: testOrganizerID,
		BCPEventID:  &eventID,
	}
}

func newTestRoundService(
	tournamentRepo *fakeTournamentRepo,
	roundRepo *fakeRoundRepo,
	tableRepo *fakeTableRepo,
	allocationRepo *fakeAllocationRepo,
	provider *fakePairingsProvider,
) RoundService {
	return NewRoundService(
		nil,
		tournamentRepo,
		roundRepo,
		&fakePlayerRepo{},
		tableRepo,
		allocationRepo,
		provider,
		nil,
		testLogger(),
	)
}

func TestGenerateAllocationsPreview(t *testing.T) {
	opponent := "p2"
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{
		rounds: map[int]*models.Round{2: {ID: 10, TournamentID: testTournamentID, Number: 2}},
		pairings: map[int][]*models.RoundPairing{
			10: {
				{Player1BCPID: "p1", Player1Name: "Alice", Player1TotalScore: 3,
					Player2BCPID: &opponent, Player2Name: "Bob", Player2TotalScore: 2},
			},
		},
	}
	tableRepo := &fakeTableRepo{tables: []*models.GameTable{
		{TournamentID: testTournamentID, Number: 1},
		{TournamentID: testTournamentID, Number: 2},
	}}
	allocationRepo := &fakeAllocationRepo{
		history: map[string]*repositories.PlayerAllocationHistory{
			"p1": {TableNumbers: []int{1}},
		},
	}

	svc := newTestRoundService(tournamentRepo, roundRepo, tableRepo, allocationRepo, &fakePairingsProvider{})

	result, err := svc.GenerateAllocations(context.Background(), testOrganizerID, testTournamentID, 2, true)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)

	// Table 1 carries a reuse penalty for p1, so the pairing lands on table 2.
	require.NotNil(t, result.Assignments[0].TableNumber)
	assert.Equal(t, 2, *result.Assignments[0].TableNumber)
	assert.Empty(t, result.Conflicts)
}

func TestGenerateAllocationsPersistsAndBroadcasts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The repositories are fakes, so only the transaction boundary runs
	// against the database handle.
	mock.ExpectBegin()
	mock.ExpectCommit()

	opponent := "p2"
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{
		rounds: map[int]*models.Round{2: {ID: 10, TournamentID: testTournamentID, Number: 2}},
		pairings: map[int][]*models.RoundPairing{
			10: {
				{Player1BCPID: "p1", Player1Name: "Alice", Player1TotalScore: 3,
					Player2BCPID: &opponent, Player2Name: "Bob", Player2TotalScore: 2},
			},
		},
	}
	tableRepo := &fakeTableRepo{tables: []*models.GameTable{
		{TournamentID: testTournamentID, Number: 1},
	}}
	allocationRepo := &fakeAllocationRepo{}
	notifier := &fakeNotifier{}

	svc := NewRoundService(db, tournamentRepo, roundRepo, &fakePlayerRepo{}, tableRepo, allocationRepo, &fakePairingsProvider{}, notifier, testLogger())

	result, err := svc.GenerateAllocations(context.Background(), testOrganizerID, testTournamentID, 2, false)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Equal(t, 1, allocationRepo.replaceCalls)
	assert.Equal(t, 10, allocationRepo.lastRoundID)
	require.Len(t, allocationRepo.lastRows, 1)

	// Every row of one run carries the same valid generation id.
	generationID := allocationRepo.lastRows[0].GenerationID
	_, err = uuid.Parse(generationID)
	assert.NoError(t, err)
	for _, row := range allocationRepo.lastRows {
		assert.Equal(t, generationID, row.GenerationID)
	}

	require.Len(t, notifier.messages, 1)
	assert.Equal(t, allocation.TournamentRoom(testTournamentID), notifier.rooms[0])
	assert.Equal(t, allocation.MessageTypeAllocationsUpdated, notifier.messages[0].Type)
	assert.Equal(t, result, notifier.messages[0].Payload)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateAllocationsPreviewDoesNotPersist(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{
		rounds:   map[int]*models.Round{2: {ID: 10, TournamentID: testTournamentID, Number: 2}},
		pairings: map[int][]*models.RoundPairing{10: {}},
	}
	tableRepo := &fakeTableRepo{tables: []*models.GameTable{{Number: 1}}}
	allocationRepo := &fakeAllocationRepo{}
	notifier := &fakeNotifier{}

	svc := NewRoundService(nil, tournamentRepo, roundRepo, &fakePlayerRepo{}, tableRepo, allocationRepo, &fakePairingsProvider{}, notifier, testLogger())

	_, err := svc.GenerateAllocations(context.Background(), testOrganizerID, testTournamentID, 2, true)
	require.NoError(t, err)
	assert.Zero(t, allocationRepo.replaceCalls)
	assert.Empty(t, notifier.messages)
}

func TestToAllocationRows(t *testing.T) {
	opponent := "p2"
	tableNumber := 3
	terrain := "forest"
	conflicts := []allocation.Conflict{
		{Type: allocation.ConflictTableReuse, Message: "player Alice already played on table 3"},
	}

	result := &allocation.AllocationResult{
		Assignments: []allocation.TableAssignment{
			{
				Pairing:   allocation.Pairing{Player1ID: "bye1", Player1Name: "Carol", Player1TotalScore: 4},
				Conflicts: []allocation.Conflict{},
				Reason:    "bye: no opponent, no table assigned",
			},
			{
				Pairing: allocation.Pairing{
					Player1ID: "p1", Player1Name: "Alice", Player1TotalScore: 3,
					Player2ID: &opponent, Player2Name: "Bob", Player2TotalScore: 2,
				},
				TableNumber:   &tableNumber,
				TerrainTypeID: &terrain,
				Conflicts:     conflicts,
				Reason:        "assigned table 3 at cost 100000 (table reuse 100000, terrain reuse 0, proposed table mismatch 0)",
			},
		},
	}

	rows, err := toAllocationRows(result, "gen-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	bye := rows[0]
	assert.Equal(t, "gen-1", bye.GenerationID)
	assert.Nil(t, bye.TableNumber)
	assert.Nil(t, bye.Player2BCPID)
	assert.Equal(t, "Carol", bye.Player1Name)

	game := rows[1]
	require.NotNil(t, game.TableNumber)
	assert.Equal(t, 3, *game.TableNumber)
	require.NotNil(t, game.TerrainTypeID)
	assert.Equal(t, "forest", *game.TerrainTypeID)
	assert.Equal(t, "Bob", game.Player2Name)

	require.NotNil(t, game.ConflictsJSON)
	var decoded []allocation.Conflict
	require.NoError(t, json.Unmarshal([]byte(*game.ConflictsJSON), &decoded))
	assert.Equal(t, conflicts, decoded)
}

func TestGenerateAllocationsRequiresImportedRound(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{rounds: map[int]*models.Round{}}
	tableRepo := &fakeTableRepo{tables: []*models.GameTable{{Number: 1}}}

	svc := newTestRoundService(tournamentRepo, roundRepo, tableRepo, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.GenerateAllocations(context.Background(), testOrganizerID, testTournamentID, 3, true)
	assert.ErrorIs(t, err, ErrRoundNotImported)
}

func TestGenerateAllocationsRequiresTables(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{
		rounds:   map[int]*models.Round{2: {ID: 10, TournamentID: testTournamentID, Number: 2}},
		pairings: map[int][]*models.RoundPairing{},
	}

	svc := newTestRoundService(tournamentRepo, roundRepo, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.GenerateAllocations(context.Background(), testOrganizerID, testTournamentID, 2, true)
	assert.ErrorIs(t, err, ErrNoTablesConfigured)
}

func TestGenerateAllocationsRejectsNonOwner(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}

	svc := newTestRoundService(tournamentRepo, &fakeRoundRepo{}, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.GenerateAllocations(context.Background(), testOrganizerID+1, testTournamentID, 2, true)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
}

func TestImportRoundRequiresLinkedEvent(t *testing.T) {
	unlinked := testTournament()
	unlinked.BCPEventID = nil
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: unlinked,
	}}

	svc := newTestRoundService(tournamentRepo, &fakeRoundRepo{}, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.ImportRound(context.Background(), testOrganizerID, testTournamentID, 1)
	assert.ErrorIs(t, err, ErrTournamentNotLinked)
}

func TestImportRoundPropagatesProviderError(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	providerErr := errors.New("provider unavailable")

	svc := newTestRoundService(tournamentRepo, &fakeRoundRepo{}, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{err: providerErr})

	_, err := svc.ImportRound(context.Background(), testOrganizerID, testTournamentID, 1)
	assert.ErrorIs(t, err, providerErr)
}

func TestPublishRoundUpdatesStatus(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}
	roundRepo := &fakeRoundRepo{
		rounds: map[int]*models.Round{2: {ID: 10, TournamentID: testTournamentID, Number: 2, Status: models.RoundStatusDraft}},
	}

	svc := newTestRoundService(tournamentRepo, roundRepo, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	err := svc.PublishRound(context.Background(), testOrganizerID, testTournamentID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusPublished, roundRepo.statuses[10])
}

func TestGetPlayerHistory(t *testing.T) {
	tournament := testTournament()
	tournament.RoundsPlanned = 5
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: tournament,
	}}
	playerRepo := &fakePlayerRepo{players: map[string]*models.Player{
		"p1": {TournamentID: testTournamentID, BCPPlayerID: "p1", DisplayName: "Alice", TotalScore: 6},
	}}
	allocationRepo := &fakeAllocationRepo{
		history: map[string]*repositories.PlayerAllocationHistory{
			"p1": {TableNumbers: []int{3, 1}, TerrainTypeIDs: []string{"ruins"}},
		},
	}

	svc := NewRoundService(nil, tournamentRepo, &fakeRoundRepo{}, playerRepo, &fakeTableRepo{}, allocationRepo, &fakePairingsProvider{}, nil, testLogger())

	history, err := svc.GetPlayerHistory(context.Background(), testTournamentID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", history.Player.DisplayName)
	assert.Equal(t, []int{3, 1}, history.TableNumbers)
	assert.Equal(t, []string{"ruins"}, history.TerrainTypeIDs)
}

func TestGetPlayerHistoryUnknownPlayer(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}

	svc := newTestRoundService(tournamentRepo, &fakeRoundRepo{}, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.GetPlayerHistory(context.Background(), testTournamentID, "ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestGetAllocationsUnknownRound(t *testing.T) {
	tournamentRepo := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{
		testTournamentID: testTournament(),
	}}

	svc := newTestRoundService(tournamentRepo, &fakeRoundRepo{}, &fakeTableRepo{}, &fakeAllocationRepo{}, &fakePairingsProvider{})

	_, err := svc.GetAllocations(context.Background(), testTournamentID, 9)
	assert.ErrorIs(t, err, ErrRoundNotFound)
}
