// Package journal records which changeset scripts have been written to
// which label trees, so that applying a changeset a second time skips the
// files it already changed.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tlabel/internal/changeset"
	"github.com/banshee-data/tlabel/internal/monitoring"
	"github.com/banshee-data/tlabel/internal/timeutil"
)

// ErrReadOnly is returned by Record on a view.
var ErrReadOnly = errors.New("journal view is read-only")

// timeFormat is fixed width so that stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DB is an apply journal backed by SQLite.
type DB struct {
	*sql.DB
	logf  monitoring.Logf
	clock timeutil.Clock
}

// Open opens or creates the journal at path and migrates it to the latest
// schema.
func Open(path string, logf monitoring.Logf) (*DB, error) {
	db, err := OpenNoMigrate(path, logf)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenNoMigrate opens the journal and applies connection PRAGMAs but
// leaves the schema alone.
func OpenNoMigrate(path string, logf monitoring.Logf) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writers are serialized through one connection.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &DB{DB: sqlDB, logf: logf, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for run and script timestamps.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

func (db *DB) now() string {
	return db.clock.Now().UTC().Format(timeFormat)
}

// Run is one invocation of the applier against a base directory. It
// implements changeset.Journal.
type Run struct {
	db       *DB
	ID       string
	Base     string
	readOnly bool
}

var _ changeset.Journal = (*Run)(nil)

// StartRun records the start of an apply run.
func (db *DB) StartRun(ctx context.Context, baseDir, changesetPath string) (*Run, error) {
	base, err := canonicalBase(baseDir)
	if err != nil {
		return nil, err
	}
	r := &Run{db: db, ID: uuid.NewString(), Base: base}
	_, err = db.ExecContext(ctx,
		`INSERT INTO apply_runs (run_id, base_dir, changeset, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Base, changesetPath, db.now())
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return r, nil
}

// View returns a read-only Run for baseDir. Dry runs use it to report
// already-applied files without writing anything.
func (db *DB) View(baseDir string) (*Run, error) {
	base, err := canonicalBase(baseDir)
	if err != nil {
		return nil, err
	}
	return &Run{db: db, Base: base, readOnly: true}, nil
}

// Applied reports whether the script with digest was already written to
// path under this run's base directory, by any run.
func (r *Run) Applied(ctx context.Context, path, digest string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applied_scripts WHERE base_dir = ? AND path = ? AND digest = ?`,
		r.Base, path, digest).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record stores a successfully written script.
func (r *Run) Record(ctx context.Context, e changeset.Entry) error {
	if r.readOnly {
		return ErrReadOnly
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO applied_scripts
			(base_dir, path, digest, run_id, updated, deleted, created, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Base, e.Path, e.Digest, r.ID, e.Updated, e.Deleted, e.Created,
		r.db.now())
	return err
}

// Finish stores the per-status file counts of a report and the end time.
func (r *Run) Finish(ctx context.Context, rep *changeset.Report) error {
	if r.readOnly {
		return ErrReadOnly
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE apply_runs SET finished_at = ?, applied = ?, skipped = ?, failed = ? WHERE run_id = ?`,
		r.db.now(),
		rep.Count(changeset.StatusApplied), rep.Count(changeset.StatusSkipped), rep.Count(changeset.StatusFailed),
		r.ID)
	return err
}

// RunInfo is a row of the run history.
type RunInfo struct {
	ID         string
	Base       string
	Changeset  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Applied    int
	Skipped    int
	Failed     int
}

// Runs returns the most recent runs first, at most limit of them.
func (db *DB) Runs(ctx context.Context, limit int) ([]RunInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT run_id, base_dir, changeset, started_at, finished_at, applied, skipped, failed
		FROM apply_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			ri       RunInfo
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&ri.ID, &ri.Base, &ri.Changeset, &started, &finished, &ri.Applied, &ri.Skipped, &ri.Failed); err != nil {
			return nil, err
		}
		if ri.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", ri.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(timeFormat, finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: finished_at: %w", ri.ID, err)
			}
			ri.FinishedAt = &t
		}
		runs = append(runs, ri)
	}
	return runs, rows.Err()
}

// Status summarizes the journal.
type Status struct {
	Version uint
	Dirty   bool
	Runs    int
	Scripts int
}

// Status returns the schema version and row counts.
func (db *DB) Status(ctx context.Context) (Status, error) {
	var st Status
	var err error
	if st.Version, st.Dirty, err = db.MigrateVersion(); err != nil {
		return st, err
	}
	if st.Version == 0 {
		return st, nil
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apply_runs`).Scan(&st.Runs); err != nil {
		return st, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applied_scripts`).Scan(&st.Scripts); err != nil {
		return st, err
	}
	return st, nil
}

func canonicalBase(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve base directory: %w", err)
	}
	return filepath.ToSlash(abs), nil
}
