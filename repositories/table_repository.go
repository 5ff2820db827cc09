package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/tabletourney/tournament-system/models"
)

var ErrTableNumberConflict = errors.New("table number already configured for this tournament")

type TableRepository interface {
	// ReplaceForTournament swaps the tournament's whole table configuration
	// in one transaction; partial table sets are never visible.
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, tables []models.GameTable) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error)
}

type postgresTableRepository struct {
	db *sql.DB
}

func NewPostgresTableRepository(db *sql.DB) TableRepository {
	return &postgresTableRepository{db: db}
}

func (r *postgresTableRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, tables []models.GameTable) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM game_tables WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to clear tables for tournament %d: %w", tournamentID, err)
	}

	query := `
		INSERT INTO game_tables (tournament_id, number, terrain_type_id, terrain_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for i := range tables {
		t := &tables[i]
		t.TournamentID = tournamentID
		err := exec.QueryRowContext(ctx, query, tournamentID, t.Number, t.TerrainTypeID, t.TerrainName).Scan(&t.ID)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Constraint == "game_tables_tournament_id_number_key" {
				return fmt.Errorf("%w: number %d", ErrTableNumberConflict, t.Number)
			}
			return fmt.Errorf("failed to insert table %d: %w", t.Number, err)
		}
	}
	return nil
}

func (r *postgresTableRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.GameTable, error) {
	query := `
		SELECT id, tournament_id, number, terrain_type_id, terrain_name
		FROM game_tables
		WHERE tournament_id = $1
		ORDER BY number ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	tables := make([]*models.GameTable, 0)
	for rows.Next() {
		t := &models.GameTable{}
		if scanErr := rows.Scan(&t.ID, &t.TournamentID, &t.Number, &t.TerrainTypeID, &t.TerrainName); scanErr != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", scanErr)
		}
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during table rows iteration: %w", err)
	}
	return tables, nil
}
