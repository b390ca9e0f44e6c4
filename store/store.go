// Package store keeps benchmark runs in a sqlite database so that runs of
// the same fixture rows can be compared over time.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/domino14/connectfour/bench"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT    NOT NULL,
	suite       TEXT    NOT NULL,
	fingerprint TEXT    NOT NULL,
	depth       INTEGER NOT NULL,
	"rows"      INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	mean_ms     REAL    NOT NULL,
	mean_nodes  REAL    NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	line       INTEGER NOT NULL,
	sequence   TEXT    NOT NULL,
	expected   INTEGER NOT NULL,
	score      INTEGER NOT NULL,
	nodes      INTEGER NOT NULL,
	elapsed_us INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_fingerprint ON runs(fingerprint);
`

// Run is a row of the runs table.
type Run struct {
	ID          int64
	StartedAt   time.Time
	Suite       string
	Fingerprint uint64
	Depth       int
	Rows        int
	Passed      int
	Failed      int
	MeanMs      float64
	MeanNodes   float64
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("opened-results-db")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a report and all of its results in one transaction and
// returns the new run id.
func (s *Store) SaveRun(ctx context.Context, r *bench.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO runs
		(started_at, suite, fingerprint, depth, "rows", passed, failed, mean_ms, mean_nodes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339Nano), r.Suite, formatFingerprint(r.Fingerprint),
		r.Depth, len(r.Results), r.Passed, r.Failed, r.MeanTimeMs(), r.MeanNodes())
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO results
		(run_id, line, sequence, expected, score, nodes, elapsed_us)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, res := range r.Results {
		_, err := stmt.ExecContext(ctx, id, res.Line, res.Sequence, res.Expected,
			res.Score, int64(res.Nodes), res.Elapsed.Microseconds())
		if err != nil {
			return 0, fmt.Errorf("inserting result for line %d: %w", res.Line, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Info().Int64("run", id).Str("suite", r.Suite).Int("rows", len(r.Results)).Msg("saved-run")
	return id, nil
}

// Runs lists the most recent runs first. limit <= 0 lists all of them.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, suite, fingerprint, depth, "rows", passed, failed,
		mean_ms, mean_nodes FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryRuns(ctx, q, args...)
}

// RunsFor lists the runs made over exactly the rows with the given
// fingerprint, most recent first.
func (s *Store) RunsFor(ctx context.Context, fingerprint uint64) ([]Run, error) {
	return s.queryRuns(ctx, `SELECT id, started_at, suite, fingerprint, depth, "rows",
		passed, failed, mean_ms, mean_nodes FROM runs WHERE fingerprint = ?
		ORDER BY id DESC`, formatFingerprint(fingerprint))
}

func (s *Store) queryRuns(ctx context.Context, q string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, fp string
		if err := rows.Scan(&run.ID, &started, &run.Suite, &fp, &run.Depth, &run.Rows,
			&run.Passed, &run.Failed, &run.MeanMs, &run.MeanNodes); err != nil {
			return nil, err
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d: %w", run.ID, err)
		}
		if run.Fingerprint, err = strconv.ParseUint(fp, 16, 64); err != nil {
			return nil, fmt.Errorf("run %d: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ResultCount is the number of result rows stored for a run.
func (s *Store) ResultCount(ctx context.Context, runID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results WHERE run_id = ?", runID).Scan(&n)
	return n, err
}

// fingerprints are stored as hex; sqlite integers are signed.
func formatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
