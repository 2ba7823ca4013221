package aggregate

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridcast/internal/db"
)

// undefinedTableCode is the Postgres error code for a missing relation.
const undefinedTableCode = "42P01"

// PostgresSource reads precomputed cell aggregates from Postgres.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgresSource creates a PostgresSource over an existing pool.
func NewPostgresSource(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Migrate creates the aggregate table if it does not exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cell_aggregates (
			h3           TEXT NOT NULL,
			res          INTEGER NOT NULL,
			point_count  INTEGER NOT NULL,
			unique_trips INTEGER NOT NULL,
			PRIMARY KEY (h3, res)
		)`)
	return eris.Wrap(err, "postgres: migrate")
}

// Aggregates implements Source.
func (s *PostgresSource) Aggregates(ctx context.Context, res int) ([]CellRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT h3, point_count, unique_trips FROM cell_aggregates WHERE res = $1`, res)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode {
			return nil, eris.Wrap(ErrDataUnavailable, "postgres: cell_aggregates table missing")
		}
		return nil, eris.Wrapf(err, "postgres: query aggregates res %d", res)
	}
	defer rows.Close()

	var records []CellRecord
	for rows.Next() {
		var r CellRecord
		if err := rows.Scan(&r.Cell, &r.PointCount, &r.UniqueTrips); err != nil {
			return nil, eris.Wrap(err, "postgres: scan aggregate row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate aggregate rows")
	}
	return records, nil
}

// ReplaceResolution replaces all rows for a resolution, bulk-loading
// the new set via COPY.
func (s *PostgresSource) ReplaceResolution(ctx context.Context, res int, records []CellRecord) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cell_aggregates WHERE res = $1`, res); err != nil {
		return eris.Wrapf(err, "postgres: clear resolution %d", res)
	}
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Cell, res, r.PointCount, r.UniqueTrips}
	}
	_, err := db.CopyFrom(ctx, s.pool, "cell_aggregates",
		[]string{"h3", "res", "point_count", "unique_trips"}, rows)
	return err
}

// Close implements Source.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
