package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/orangebot/orangebot/internal/match"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Store keeps the history of finished maps
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, log: logrus.WithField("component", "storage")}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMapResult records a finished map. It satisfies the result sink the
// match controllers write to; a failed history write is logged rather than
// propagated because it must never interrupt a running match.
func (s *Store) SaveMapResult(r match.MapResult) {
	if err := s.InsertMapResult(context.Background(), r); err != nil {
		s.log.WithFields(logrus.Fields{
			"server": r.ServerAddr,
			"map":    r.Map,
			"error":  err.Error(),
		}).Error("could not save map result")
	}
}

// InsertMapResult writes one finished map to the history
func (s *Store) InsertMapResult(ctx context.Context, r match.MapResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO map_results (server_addr, series_id, map, team_t, team_ct, t_score, ct_score, demo_name, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ServerAddr, r.SeriesID, r.Map, r.TeamT, r.TeamCT, r.TScore, r.CTScore, r.DemoName, formatTimestamp(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("inserting map result: %w", err)
	}
	return nil
}

// ListMapResults returns recent results, newest first. An empty serverAddr
// returns results for all servers.
func (s *Store) ListMapResults(ctx context.Context, serverAddr string, limit int) ([]match.MapResult, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT server_addr, series_id, map, team_t, team_ct, t_score, ct_score, demo_name, finished_at
		FROM map_results
	`
	args := []interface{}{}
	if serverAddr != "" {
		query += " WHERE server_addr = ?"
		args = append(args, serverAddr)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying map results: %w", err)
	}
	defer rows.Close()

	return scanMapResults(rows)
}

// ListSeriesResults returns all maps of one series in play order
func (s *Store) ListSeriesResults(ctx context.Context, seriesID string) ([]match.MapResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT server_addr, series_id, map, team_t, team_ct, t_score, ct_score, demo_name, finished_at
		FROM map_results
		WHERE series_id = ?
		ORDER BY id
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("querying series results: %w", err)
	}
	defer rows.Close()

	return scanMapResults(rows)
}

func scanMapResults(rows *sql.Rows) ([]match.MapResult, error) {
	var results []match.MapResult
	for rows.Next() {
		var r match.MapResult
		var finishedAt string
		if err := rows.Scan(&r.ServerAddr, &r.SeriesID, &r.Map, &r.TeamT, &r.TeamCT,
			&r.TScore, &r.CTScore, &r.DemoName, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning map result: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, finishedAt); err == nil {
			r.FinishedAt = t
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
