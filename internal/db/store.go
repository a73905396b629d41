// Package db provides database connectivity and run audit persistence for
// reqgate.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Store persists completed quality-gate runs for auditing.
type Store struct {
	db *sql.DB
}

// NewStore creates a store for run persistence.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunRecord is one audited quality-gate run.
type RunRecord struct {
	RunID             string             `json:"run_id"`
	CreatedAt         string             `json:"created_at"`
	ProjectKey        string             `json:"project_key"`
	TicketType        string             `json:"ticket_type"`
	Decision          string             `json:"decision"`
	TotalScore        *int               `json:"total_score"`
	FallbackActivated bool               `json:"fallback_activated"`
	DurationSeconds   float64            `json:"duration_seconds"`
	ErrorLogs         []string           `json:"error_logs"`
	ExecutionTimes    map[string]float64 `json:"execution_times"`
}

// CreateRun inserts one completed run record.
func (s *Store) CreateRun(ctx context.Context, rec RunRecord) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	logsJSON, err := json.Marshal(rec.ErrorLogs)
	if err != nil {
		return fmt.Errorf("marshal error logs: %w", err)
	}
	timesJSON, err := json.Marshal(rec.ExecutionTimes)
	if err != nil {
		return fmt.Errorf("marshal execution times: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, project_key, ticket_type, decision, total_score, fallback_activated, duration_seconds, error_logs_json, execution_times_json)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.CreatedAt, rec.ProjectKey, rec.TicketType, rec.Decision,
		nullableIntPtr(rec.TotalScore), boolToInt(rec.FallbackActivated),
		rec.DurationSeconds, string(logsJSON), string(timesJSON)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, project_key, ticket_type, decision, total_score, fallback_activated, duration_seconds, error_logs_json, execution_times_json
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var score sql.NullInt64
		var fallback int
		var logsJSON, timesJSON sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.CreatedAt, &rec.ProjectKey, &rec.TicketType,
			&rec.Decision, &score, &fallback, &rec.DurationSeconds, &logsJSON, &timesJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			rec.TotalScore = &v
		}
		rec.FallbackActivated = fallback != 0
		rec.ErrorLogs = []string{}
		if logsJSON.Valid && logsJSON.String != "" {
			_ = json.Unmarshal([]byte(logsJSON.String), &rec.ErrorLogs)
		}
		rec.ExecutionTimes = map[string]float64{}
		if timesJSON.Valid && timesJSON.String != "" {
			_ = json.Unmarshal([]byte(timesJSON.String), &rec.ExecutionTimes)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns the run for an id, or nil if missing.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, created_at, project_key, ticket_type, decision, total_score, fallback_activated, duration_seconds, error_logs_json, execution_times_json
		FROM runs WHERE run_id=?`, runID)
	var rec RunRecord
	var score sql.NullInt64
	var fallback int
	var logsJSON, timesJSON sql.NullString
	if err := row.Scan(&rec.RunID, &rec.CreatedAt, &rec.ProjectKey, &rec.TicketType,
		&rec.Decision, &score, &fallback, &rec.DurationSeconds, &logsJSON, &timesJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	if score.Valid {
		v := int(score.Int64)
		rec.TotalScore = &v
	}
	rec.FallbackActivated = fallback != 0
	rec.ErrorLogs = []string{}
	if logsJSON.Valid && logsJSON.String != "" {
		_ = json.Unmarshal([]byte(logsJSON.String), &rec.ErrorLogs)
	}
	rec.ExecutionTimes = map[string]float64{}
	if timesJSON.Valid && timesJSON.String != "" {
		_ = json.Unmarshal([]byte(timesJSON.String), &rec.ExecutionTimes)
	}
	return &rec, nil
}

func nullableIntPtr(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
