package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/types"
)

// ErrPlanNotFound is returned when no plan exists for the requested id.
var ErrPlanNotFound = errors.New("plan not found")

const schemaVersion = "1"

// Transient lock errors are retried with doubling backoff before a
// write is reported as failed.
const (
	writeRetries      = 3
	writeRetryBackoff = 100 * time.Millisecond
)

// SQLiteStorage implements plan storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.SetConfig(ctx, "schema_version", schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to record schema version: %w", err)
	}

	return s, nil
}

// CreatePlan inserts a new plan. The plan id must not already exist.
func (s *SQLiteStorage) CreatePlan(ctx context.Context, plan *types.Plan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	return s.execWithRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO plans (id, destination, duration_days, status, steps, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			plan.ID, plan.Destination, plan.DurationDays, string(plan.Status),
			string(stepsJSON), plan.CreatedAt, plan.UpdatedAt)
		return err
	})
}

// GetPlan loads a plan by id. Returns ErrPlanNotFound when it does not exist.
func (s *SQLiteStorage) GetPlan(ctx context.Context, id string) (*types.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, destination, duration_days, status, steps, created_at, updated_at
		FROM plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %s: %w", id, err)
	}
	return plan, nil
}

// SavePlan overwrites the stored plan for plan.ID. The write is atomic
// for the plan id; transient lock errors are retried with backoff.
func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *types.Plan) error {
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	stepsJSON, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	return s.execWithRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE plans SET destination = ?, duration_days = ?, status = ?, steps = ?, updated_at = ?
			WHERE id = ?`,
			plan.Destination, plan.DurationDays, string(plan.Status),
			string(stepsJSON), plan.UpdatedAt, plan.ID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrPlanNotFound
		}
		return nil
	})
}

// ListPlans returns all plans, newest first.
func (s *SQLiteStorage) ListPlans(ctx context.Context) ([]*types.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, destination, duration_days, status, steps, created_at, updated_at
		FROM plans ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []*types.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// StorePlanEvent appends a step-transition event to the audit trail.
func (s *SQLiteStorage) StorePlanEvent(ctx context.Context, event *events.PlanEvent) error {
	if !event.Type.IsValid() {
		return fmt.Errorf("invalid event type: %s", event.Type)
	}
	var result any
	if len(event.Result) > 0 {
		result = string(event.Result)
	}
	return s.execWithRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO plan_events (id, plan_id, event_type, step_id, step_type, severity, message, result, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			event.ID, event.PlanID, string(event.Type), event.StepID, event.StepType,
			string(event.Severity), event.Message, result, event.Timestamp)
		return err
	})
}

// GetPlanEvents returns a plan's events in chronological order, up to
// limit (0 = unlimited).
func (s *SQLiteStorage) GetPlanEvents(ctx context.Context, planID string, limit int) ([]*events.PlanEvent, error) {
	query := `
		SELECT id, plan_id, event_type, step_id, step_type, severity, message, result, created_at
		FROM plan_events WHERE plan_id = ? ORDER BY created_at ASC, id ASC`
	args := []any{planID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evts []*events.PlanEvent
	for rows.Next() {
		var e events.PlanEvent
		var stepID, stepType, result sql.NullString
		if err := rows.Scan(&e.ID, &e.PlanID, &e.Type, &stepID, &stepType,
			&e.Severity, &e.Message, &result, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan plan event: %w", err)
		}
		e.StepID = stepID.String
		e.StepType = stepType.String
		if result.Valid {
			e.Result = json.RawMessage(result.String)
		}
		evts = append(evts, &e)
	}
	return evts, rows.Err()
}

// GetConfig returns the value for a config key, or "" if unset.
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config %s: %w", key, err)
	}
	return value, nil
}

// SetConfig stores a config key/value pair.
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	return s.execWithRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		return err
	})
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// execWithRetry runs a write, retrying on transient sqlite lock errors.
func (s *SQLiteStorage) execWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := writeRetryBackoff
	for attempt := 0; attempt <= writeRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientError(lastErr) {
			return lastErr
		}
		if attempt == writeRetries {
			break
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return fmt.Errorf("write canceled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("write failed after %d attempts: %w", writeRetries+1, lastErr)
}

// isTransientError reports whether the error is a temporary sqlite
// contention condition worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanPlan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*types.Plan, error) {
	var plan types.Plan
	var stepsJSON string
	if err := row.Scan(&plan.ID, &plan.Destination, &plan.DurationDays,
		&plan.Status, &stepsJSON, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &plan.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	return &plan, nil
}
