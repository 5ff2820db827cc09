package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabletourney/tournament-system/models"
)

// PlayerAllocationHistory is what one player has already been exposed to in
// earlier, already-stored rounds of a tournament.
type PlayerAllocationHistory struct {
	TableNumbers   []int
	TerrainTypeIDs []string
}

type AllocationRepository interface {
	// ReplaceForRound swaps the round's stored allocations atomically (the
	// caller supplies the transaction); a failed generation never leaves a
	// partially written round behind.
	ReplaceForRound(ctx context.Context, exec SQLExecutor, roundID int, allocations []models.TableAllocation) error
	ListByRound(ctx context.Context, roundID int) ([]*models.TableAllocation, error)
	// GetPlayerHistory returns the distinct table numbers and terrain type
	// ids the player saw in rounds strictly before beforeRound.
	GetPlayerHistory(ctx context.Context, tournamentID int, bcpPlayerID string, beforeRound int) (*PlayerAllocationHistory, error)
}

type postgresAllocationRepository struct {
	db *sql.DB
}

func NewPostgresAllocationRepository(db *sql.DB) AllocationRepository {
	return &postgresAllocationRepository{db: db}
}

func (r *postgresAllocationRepository) ReplaceForRound(ctx context.Context, exec SQLExecutor, roundID int, allocations []models.TableAllocation) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM table_allocations WHERE round_id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to clear allocations for round %d: %w", roundID, err)
	}

	query := `
		INSERT INTO table_allocations
			(round_id, generation_id, table_number, terrain_type_id,
			 player1_bcp_id, player1_name, player1_score,
			 player2_bcp_id, player2_name, player2_score,
			 conflicts, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`

	for i := range allocations {
		a := &allocations[i]
		a.RoundID = roundID
		err := exec.QueryRowContext(ctx, query,
			a.RoundID,
			a.GenerationID,
			a.TableNumber,
			a.TerrainTypeID,
			a.Player1BCPID,
			a.Player1Name,
			a.Player1Score,
			a.Player2BCPID,
			a.Player2Name,
			a.Player2Score,
			a.ConflictsJSON,
			a.Reason,
		).Scan(&a.ID, &a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert allocation for round %d: %w", roundID, err)
		}
	}
	return nil
}

func (r *postgresAllocationRepository) ListByRound(ctx context.Context, roundID int) ([]*models.TableAllocation, error) {
	query := `
		SELECT id, round_id, generation_id, table_number, terrain_type_id,
		       player1_bcp_id, player1_name, player1_score,
		       player2_bcp_id, player2_name, player2_score,
		       conflicts, reason, created_at
		FROM table_allocations
		WHERE round_id = $1
		ORDER BY table_number ASC NULLS LAST, id ASC`

	rows, err := r.db.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations for round %d: %w", roundID, err)
	}
	defer rows.Close()

	allocations := make([]*models.TableAllocation, 0)
	for rows.Next() {
		a := &models.TableAllocation{}
		if scanErr := rows.Scan(
			&a.ID,
			&a.RoundID,
			&a.GenerationID,
			&a.TableNumber,
			&a.TerrainTypeID,
			&a.Player1BCPID,
			&a.Player1Name,
			&a.Player1Score,
			&a.Player2BCPID,
			&a.Player2Name,
			&a.Player2Score,
			&a.ConflictsJSON,
			&a.Reason,
			&a.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", scanErr)
		}
		allocations = append(allocations, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during allocation rows iteration: %w", err)
	}
	return allocations, nil
}

func (r *postgresAllocationRepository) GetPlayerHistory(ctx context.Context, tournamentID int, bcpPlayerID string, beforeRound int) (*PlayerAllocationHistory, error) {
	query := `
		SELECT DISTINCT ta.table_number, ta.terrain_type_id
		FROM table_allocations ta
		JOIN rounds r ON r.id = ta.round_id
		WHERE r.tournament_id = $1
		  AND r.number < $2
		  AND ta.table_number IS NOT NULL
		  AND (ta.player1_bcp_id = $3 OR ta.player2_bcp_id = $3)`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, beforeRound, bcpPlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for player %s: %w", bcpPlayerID, err)
	}
	defer rows.Close()

	// DISTINCT dedupes (table, terrain) pairs, so a table whose terrain tag
	// changed between rounds still comes back twice; dedupe each dimension
	// on its own.
	history := &PlayerAllocationHistory{}
	seenTable := make(map[int]bool)
	seenTerrain := make(map[string]bool)
	for rows.Next() {
		var tableNumber int
		var terrainTypeID *string
		if scanErr := rows.Scan(&tableNumber, &terrainTypeID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", scanErr)
		}
		if !seenTable[tableNumber] {
			seenTable[tableNumber] = true
			history.TableNumbers = append(history.TableNumbers, tableNumber)
		}
		if terrainTypeID != nil && !seenTerrain[*terrainTypeID] {
			seenTerrain[*terrainTypeID] = true
			history.TerrainTypeIDs = append(history.TerrainTypeIDs, *terrainTypeID)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during history rows iteration: %w", err)
	}
	return history, nil
}
