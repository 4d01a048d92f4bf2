// Package store archives simulation runs in a sqlite database so that a
// run can be plotted again after the simulator has overwritten its CSVs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/trackviz/internal/monitoring"
	"github.com/banshee-data/trackviz/internal/timeutil"
	"github.com/banshee-data/trackviz/internal/tracks"
)

var (
	// ErrRunNotFound is returned when no run matches an id or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when a prefix matches several runs.
	ErrAmbiguousRun = errors.New("ambiguous run id prefix")
)

const (
	kindGroundTruth = "gt"
	kindTrack       = "track"
)

// Run describes one archived simulation run.
type Run struct {
	ID              string
	Label           string
	SourceDir       string
	CreatedAt       time.Time
	GroundTruthRows int
	TrackRows       int
}

// Store is the run archive.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the archive at path and applies any
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases coherent and avoids
	// writer contention on the file.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used to stamp new runs.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores both trajectory sets under a new run id.
func (s *Store) SaveRun(ctx context.Context, label, sourceDir string, gt, tr *tracks.TrajectorySet) (Run, error) {
	run := Run{
		ID:        uuid.New().String(),
		Label:     label,
		SourceDir: sourceDir,
		CreatedAt: s.clock.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, label, source_dir, created_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Label, run.SourceDir, run.CreatedAt.UnixNano(),
	); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_samples (run_id, kind, seq, object_id, time, x, y, tentative)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	insert := func(kind string, set *tracks.TrajectorySet) (int, error) {
		if set == nil {
			return 0, nil
		}
		seq := 0
		for _, t := range set.Trajectories() {
			for _, smp := range t.Samples {
				if _, err := stmt.ExecContext(ctx, run.ID, kind, seq, t.ID, smp.Time, smp.X, smp.Y, smp.Tentative); err != nil {
					return seq, fmt.Errorf("insert %s sample %d: %w", kind, seq, err)
				}
				seq++
			}
		}
		return seq, nil
	}

	if run.GroundTruthRows, err = insert(kindGroundTruth, gt); err != nil {
		return Run{}, err
	}
	if run.TrackRows, err = insert(kindTrack, tr); err != nil {
		return Run{}, err
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}

	monitoring.Logf("archived run %s (%d ground truth, %d track samples)", run.ID, run.GroundTruthRows, run.TrackRows)
	return run, nil
}

const runColumns = `
	SELECT r.run_id, r.label, r.source_dir, r.created_at,
	       COALESCE(SUM(CASE WHEN rs.kind = 'gt' THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN rs.kind = 'track' THEN 1 ELSE 0 END), 0)
	FROM runs r
	LEFT JOIN run_samples rs ON rs.run_id = r.run_id`

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var created int64
	if err := rows.Scan(&r.ID, &r.Label, &r.SourceDir, &created, &r.GroundTruthRows, &r.TrackRows); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, runColumns+`
		GROUP BY r.run_id
		ORDER BY r.created_at DESC, r.run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run. id may be a unique prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	runID, err := s.ResolveRunID(ctx, id)
	if err != nil {
		return Run{}, err
	}
	rows, err := s.db.QueryContext(ctx, runColumns+`
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return scanRun(rows)
}

// ResolveRunID expands a full id or unique prefix to a run id.
func (s *Store) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE substr(run_id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("resolve run: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
	}
}

// LoadRun rebuilds the ground truth and track sets of a run, keeping the
// original first-seen and row order. id may be a unique prefix.
func (s *Store) LoadRun(ctx context.Context, id string) (gt, tr *tracks.TrajectorySet, err error) {
	runID, err := s.ResolveRunID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, object_id, time, x, y, tentative
		FROM run_samples
		WHERE run_id = ?
		ORDER BY kind, seq`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	defer rows.Close()

	gt, tr = tracks.NewTrajectorySet(), tracks.NewTrajectorySet()
	for rows.Next() {
		var kind string
		var objectID int
		var smp tracks.Sample
		if err := rows.Scan(&kind, &objectID, &smp.Time, &smp.X, &smp.Y, &smp.Tentative); err != nil {
			return nil, nil, fmt.Errorf("scan sample: %w", err)
		}
		if kind == kindGroundTruth {
			gt.Append(objectID, smp)
		} else {
			tr.Append(objectID, smp)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return gt, tr, nil
}

// DeleteRun removes a run and its samples.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	runID, err := s.ResolveRunID(ctx, id)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM run_samples WHERE run_id = ?`,
		`DELETE FROM runs WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, runID); err != nil {
			return fmt.Errorf("delete run %s: %w", runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	monitoring.Logf("deleted run %s", runID)
	return nil
}
