package aggregate

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSource_Aggregates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"h3", "point_count", "unique_trips"}).
		AddRow("8828308281fffff", 42, 31).
		AddRow("8828308283fffff", 7, 5)
	mock.ExpectQuery(`SELECT h3, point_count, unique_trips FROM cell_aggregates WHERE res = \$1`).
		WithArgs(8).
		WillReturnRows(rows)

	src := NewPostgresSource(mock)
	got, err := src.Aggregates(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, CellRecord{Cell: "8828308281fffff", PointCount: 42, UniqueTrips: 31}, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_MissingTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT h3, point_count, unique_trips FROM cell_aggregates`).
		WithArgs(8).
		WillReturnError(&pgconn.PgError{Code: "42P01", Message: `relation "cell_aggregates" does not exist`})

	src := NewPostgresSource(mock)
	_, err = src.Aggregates(context.Background(), 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_ReplaceResolution(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM cell_aggregates WHERE res = \$1`).
		WithArgs(8).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"cell_aggregates"},
		[]string{"h3", "res", "point_count", "unique_trips"}).WillReturnResult(2)

	src := NewPostgresSource(mock)
	err = src.ReplaceResolution(context.Background(), 8, []CellRecord{
		{Cell: "8828308281fffff", PointCount: 42, UniqueTrips: 31},
		{Cell: "8828308283fffff", PointCount: 7, UniqueTrips: 5},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSource_Migrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cell_aggregates`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	src := NewPostgresSource(mock)
	require.NoError(t, src.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
