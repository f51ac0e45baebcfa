package storage

import (
	"context"
	"errors"

	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/storage/sqlite"
	"github.com/tripflow/tripflow/internal/types"
)

// ErrPlanNotFound is returned when no plan exists for the requested id.
var ErrPlanNotFound = sqlite.ErrPlanNotFound

// Storage defines the interface for plan storage backends. The
// orchestrator is the only writer; everything else reads snapshots.
type Storage interface {
	// Plans
	CreatePlan(ctx context.Context, plan *types.Plan) error
	GetPlan(ctx context.Context, id string) (*types.Plan, error)
	SavePlan(ctx context.Context, plan *types.Plan) error
	ListPlans(ctx context.Context) ([]*types.Plan, error)

	// Plan Events - audit trail of step transitions
	StorePlanEvent(ctx context.Context, event *events.PlanEvent) error
	GetPlanEvents(ctx context.Context, planID string, limit int) ([]*events.PlanEvent, error)

	// Config
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".tripflow/tripflow.db",
	}
}

// NewStorage creates a storage backend from the config.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		return nil, errors.New("storage path is required")
	}
	return sqlite.New(ctx, cfg.Path)
}
