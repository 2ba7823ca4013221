package aggregate

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSource reads precomputed cell aggregates from a sqlite table.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens a sqlite database at the given path and
// configures WAL mode.
func NewSQLiteSource(dsn string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteSource{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cell_aggregates (
	h3           TEXT NOT NULL,
	res          INTEGER NOT NULL,
	point_count  INTEGER NOT NULL,
	unique_trips INTEGER NOT NULL,
	PRIMARY KEY (h3, res)
);

CREATE INDEX IF NOT EXISTS idx_cell_aggregates_res ON cell_aggregates(res);
`

// Migrate creates the aggregate table if it does not exist.
func (s *SQLiteSource) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "sqlite: migrate")
}

// Aggregates implements Source.
func (s *SQLiteSource) Aggregates(ctx context.Context, res int) ([]CellRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h3, point_count, unique_trips FROM cell_aggregates WHERE res = ?`, res)
	if err != nil {
		if isMissingTable(err) {
			return nil, eris.Wrap(ErrDataUnavailable, "sqlite: cell_aggregates table missing")
		}
		return nil, eris.Wrapf(err, "sqlite: query aggregates res %d", res)
	}
	defer rows.Close()

	var records []CellRecord
	for rows.Next() {
		var r CellRecord
		if err := rows.Scan(&r.Cell, &r.PointCount, &r.UniqueTrips); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan aggregate row")
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate aggregate rows")
	}
	return records, nil
}

// ReplaceResolution replaces all rows for a resolution inside one
// transaction; used by the build command.
func (s *SQLiteSource) ReplaceResolution(ctx context.Context, res int, records []CellRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM cell_aggregates WHERE res = ?`, res); err != nil {
		return eris.Wrapf(err, "sqlite: clear resolution %d", res)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cell_aggregates (h3, res, point_count, unique_trips) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Cell, res, r.PointCount, r.UniqueTrips); err != nil {
			return eris.Wrapf(err, "sqlite: insert cell %s", r.Cell)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace tx")
}

// Close implements Source.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
