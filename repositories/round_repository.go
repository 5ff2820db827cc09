package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tabletourney/tournament-system/models"
)

var ErrRoundNotFound = errors.New("round not found")

type RoundRepository interface {
	// UpsertWithPairings stores the round and replaces its imported pairings
	// in one shot. Re-importing a round overwrites the previous import.
	UpsertWithPairings(ctx context.Context, exec SQLExecutor, round *models.Round, pairings []models.RoundPairing) error
	GetByNumber(ctx context.Context, tournamentID, number int) (*models.Round, error)
	ListPairings(ctx context.Context, roundID int) ([]*models.RoundPairing, error)
	UpdateStatus(ctx context.Context, id int, status models.RoundStatus) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) UpsertWithPairings(ctx context.Context, exec SQLExecutor, round *models.Round, pairings []models.RoundPairing) error {
	roundQuery := `
		INSERT INTO rounds (tournament_id, number, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, number)
		DO UPDATE SET status = EXCLUDED.status
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, roundQuery, round.TournamentID, round.Number, round.Status).
		Scan(&round.ID, &round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert round %d for tournament %d: %w", round.Number, round.TournamentID, err)
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM round_pairings WHERE round_id = $1`, round.ID); err != nil {
		return fmt.Errorf("failed to clear pairings for round %d: %w", round.ID, err)
	}

	pairingQuery := `
		INSERT INTO round_pairings
			(round_id, player1_bcp_id, player1_name, player1_round_score, player1_total_score,
			 player2_bcp_id, player2_name, player2_round_score, player2_total_score, original_table_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	for i := range pairings {
		p := &pairings[i]
		p.RoundID = round.ID
		err := exec.QueryRowContext(ctx, pairingQuery,
			p.RoundID,
			p.Player1BCPID,
			p.Player1Name,
			p.Player1RoundScore,
			p.Player1TotalScore,
			p.Player2BCPID,
			p.Player2Name,
			p.Player2RoundScore,
			p.Player2TotalScore,
			p.OriginalTableNumber,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert pairing for round %d: %w", round.ID, err)
		}
	}
	return nil
}

func (r *postgresRoundRepository) GetByNumber(ctx context.Context, tournamentID, number int) (*models.Round, error) {
	query := `
		SELECT id, tournament_id, number, status, created_at
		FROM rounds
		WHERE tournament_id = $1 AND number = $2`

	round := &models.Round{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, number).Scan(
		&round.ID,
		&round.TournamentID,
		&round.Number,
		&round.Status,
		&round.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round %d of tournament %d: %w", number, tournamentID, err)
	}
	return round, nil
}

func (r *postgresRoundRepository) ListPairings(ctx context.Context, roundID int) ([]*models.RoundPairing, error) {
	query := `
		SELECT id, round_id, player1_bcp_id, player1_name, player1_round_score, player1_total_score,
		       player2_bcp_id, player2_name, player2_round_score, player2_total_score, original_table_number
		FROM round_pairings
		WHERE round_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pairings for round %d: %w", roundID, err)
	}
	defer rows.Close()

	pairings := make([]*models.RoundPairing, 0)
	for rows.Next() {
		p := &models.RoundPairing{}
		if scanErr := rows.Scan(
			&p.ID,
			&p.RoundID,
			&p.Player1BCPID,
			&p.Player1Name,
			&p.Player1RoundScore,
			&p.Player1TotalScore,
			&p.Player2BCPID,
			&p.Player2Name,
			&p.Player2RoundScore,
			&p.Player2TotalScore,
			&p.OriginalTableNumber,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan pairing row: %w", scanErr)
		}
		pairings = append(pairings, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during pairing rows iteration: %w", err)
	}
	return pairings, nil
}

func (r *postgresRoundRepository) UpdateStatus(ctx context.Context, id int, status models.RoundStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE rounds SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update round %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}
