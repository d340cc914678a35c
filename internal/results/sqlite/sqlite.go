// Package sqlite stores run records in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
)

// Store implements results.Sink on top of SQLite.
type Store struct {
	db *sql.DB
}

var _ results.Sink = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL,
		router TEXT NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		total_sent INTEGER NOT NULL,
		total_delivered INTEGER NOT NULL,
		total_dropped INTEGER NOT NULL,
		delivery_rate REAL NOT NULL,
		latency_mean REAL NOT NULL,
		latency_median REAL NOT NULL,
		latency_p95 REAL NOT NULL,
		data JSON NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenario_router ON runs(scenario, router);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts rec, replacing any earlier record with the same run ID.
func (s *Store) Save(ctx context.Context, rec results.Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("record has no run_id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	m := rec.Metrics
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, scenario, router, seed,
			total_sent, total_delivered, total_dropped,
			delivery_rate, latency_mean, latency_median, latency_p95,
			data, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID, rec.Scenario, rec.Router, rec.Seed,
		m.TotalSent, m.TotalDelivered, m.TotalDropped,
		m.DeliveryRate, m.LatencyMean, m.LatencyMedian, m.LatencyP95,
		string(data), rec.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	return nil
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Scenario string
	Router   string
}

// List returns stored records, oldest first.
func (s *Store) List(ctx context.Context, f Filter) ([]results.Record, error) {
	query := `SELECT data FROM runs`
	var (
		where []string
		args  []any
	)
	if f.Scenario != "" {
		where = append(where, "scenario = ?")
		args = append(args, f.Scenario)
	}
	if f.Router != "" {
		where = append(where, "router = ?")
		args = append(args, f.Router)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY completed_at, run_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []results.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var rec results.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}

// Get returns one record by run ID.
func (s *Store) Get(ctx context.Context, runID string) (results.Record, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM runs WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return results.Record{}, false, nil
	}
	if err != nil {
		return results.Record{}, false, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	var rec results.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return results.Record{}, false, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return rec, true, nil
}
