// Package trace persists per-run evaluation profiles to SQLite so slow
// rule expressions can be found after the fact.
package trace

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/predicate/pkg/dag"
)

// Store is a SQLite-backed evaluation trace store. One run row is written
// per recorded evaluation run, with one node row per profiled node.
//
// SQLite supports a single writer, so the connection pool is capped at
// one connection and WAL mode keeps readers unblocked.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once

	insertRunStmt  *sql.Stmt
	insertNodeStmt *sql.Stmt
	slowestStmt    *sql.Stmt
	pruneStmt      *sql.Stmt
}

// NodeTiming is one aggregated row of SlowestNodes: the canonical
// expression text, how often it was profiled, and its cumulative self time.
type NodeTiming struct {
	Sexpr     string
	Count     int64
	TotalSelf time.Duration
}

// Open opens (creating if necessary) a trace store at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("trace store path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize trace schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare trace statements: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS node_timings (
		run_id     TEXT NOT NULL,
		node_index INTEGER NOT NULL,
		sexpr      TEXT NOT NULL,
		start_ns   INTEGER NOT NULL,
		total_ns   INTEGER NOT NULL,
		self_ns    INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_timings_run ON node_timings(run_id);
	CREATE INDEX IF NOT EXISTS idx_timings_sexpr ON node_timings(sexpr);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertRunStmt, err = s.db.Prepare(`
		INSERT INTO runs (run_id, started_at) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare run insert: %w", err)
	}

	s.insertNodeStmt, err = s.db.Prepare(`
		INSERT INTO node_timings (run_id, node_index, sexpr, start_ns, total_ns, self_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare timing insert: %w", err)
	}

	s.slowestStmt, err = s.db.Prepare(`
		SELECT sexpr, COUNT(*), SUM(self_ns)
		FROM node_timings
		GROUP BY sexpr
		ORDER BY SUM(self_ns) DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare slowest query: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM runs WHERE started_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}
	return nil
}

// RecordRun persists one run's profile records in a single transaction.
func (s *Store) RecordRun(ctx context.Context, g *dag.GraphEvalState) error {
	records := g.ProfileRecords()
	startedAt := time.Now()
	if len(records) > 0 {
		startedAt = records[0].Start
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin trace transaction: %w", err)
	}
	defer tx.Rollback()

	runID := g.RunID().String()
	if _, err := tx.StmtContext(ctx, s.insertRunStmt).ExecContext(ctx, runID, startedAt.UnixNano()); err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}
	nodeStmt := tx.StmtContext(ctx, s.insertNodeStmt)
	for _, rec := range records {
		_, err := nodeStmt.ExecContext(ctx,
			runID,
			rec.NodeIndex,
			rec.Sexpr,
			rec.Start.UnixNano(),
			rec.Duration().Nanoseconds(),
			rec.SelfDuration().Nanoseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to record timing for %s: %w", rec.Sexpr, err)
		}
	}
	return tx.Commit()
}

// SlowestNodes returns up to limit expressions ordered by cumulative self
// time across all recorded runs, slowest first.
func (s *Store) SlowestNodes(ctx context.Context, limit int) ([]NodeTiming, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.slowestStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query slowest nodes: %w", err)
	}
	defer rows.Close()

	var out []NodeTiming
	for rows.Next() {
		var t NodeTiming
		var selfNS int64
		if err := rows.Scan(&t.Sexpr, &t.Count, &selfNS); err != nil {
			return nil, fmt.Errorf("failed to scan timing row: %w", err)
		}
		t.TotalSelf = time.Duration(selfNS)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PruneBefore deletes runs started before cutoff along with their node
// timings, returning how many runs were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM node_timings WHERE run_id IN
			(SELECT run_id FROM runs WHERE started_at < ?)
	`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune timings: %w", err)
	}

	res, err := tx.StmtContext(ctx, s.pruneStmt).ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.insertRunStmt, s.insertNodeStmt, s.slowestStmt, s.pruneStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
