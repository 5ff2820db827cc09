package repositories

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlayerHistoryDedupesTablesAndTerrains(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Table 1 appears twice because its terrain tag changed between rounds;
	// the history must still list it once.
	rows := sqlmock.NewRows([]string{"table_number", "terrain_type_id"}).
		AddRow(1, "forest").
		AddRow(1, "ruins").
		AddRow(2, nil).
		AddRow(3, "forest")

	mock.ExpectQuery("SELECT DISTINCT ta.table_number, ta.terrain_type_id").
		WithArgs(1, 3, "p1").
		WillReturnRows(rows)

	repo := NewPostgresAllocationRepository(db)

	history, err := repo.GetPlayerHistory(context.Background(), 1, "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, history.TableNumbers)
	assert.Equal(t, []string{"forest", "ruins"}, history.TerrainTypeIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPlayerHistoryEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT ta.table_number, ta.terrain_type_id").
		WithArgs(1, 1, "new-player").
		WillReturnRows(sqlmock.NewRows([]string{"table_number", "terrain_type_id"}))

	repo := NewPostgresAllocationRepository(db)

	history, err := repo.GetPlayerHistory(context.Background(), 1, "new-player", 1)
	require.NoError(t, err)
	assert.Empty(t, history.TableNumbers)
	assert.Empty(t, history.TerrainTypeIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
