package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tabletourney/tournament-system/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	// Upsert creates the roster entry or refreshes the name and total score
	// of an existing one, keyed by (tournament, BCP player id).
	Upsert(ctx context.Context, exec SQLExecutor, player *models.Player) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error)
	GetByBCPID(ctx context.Context, tournamentID int, bcpPlayerID string) (*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Upsert(ctx context.Context, exec SQLExecutor, p *models.Player) error {
	query := `
		INSERT INTO players (tournament_id, bcp_player_id, display_name, total_score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tournament_id, bcp_player_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, total_score = EXCLUDED.total_score
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		p.TournamentID,
		p.BCPPlayerID,
		p.DisplayName,
		p.TotalScore,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", p.BCPPlayerID, err)
	}
	return nil
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Player, error) {
	query := `
		SELECT id, tournament_id, bcp_player_id, display_name, total_score, created_at
		FROM players
		WHERE tournament_id = $1
		ORDER BY total_score DESC, display_name ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p := &models.Player{}
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.BCPPlayerID, &p.DisplayName, &p.TotalScore, &p.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) GetByBCPID(ctx context.Context, tournamentID int, bcpPlayerID string) (*models.Player, error) {
	query := `
		SELECT id, tournament_id, bcp_player_id, display_name, total_score, created_at
		FROM players
		WHERE tournament_id = $1 AND bcp_player_id = $2`

	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, bcpPlayerID).Scan(
		&p.ID, &p.TournamentID, &p.BCPPlayerID, &p.DisplayName, &p.TotalScore, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player %s: %w", bcpPlayerID, err)
	}
	return p, nil
}
