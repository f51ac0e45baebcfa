// Package orchestrator drives plans through their steps. It owns every
// plan it advances: steps execute strictly in creation order, one in
// flight per plan, with each transition persisted to the store and
// mirrored to the progress hub. Distinct plans advance independently.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/hub"
	"github.com/tripflow/tripflow/internal/research"
	"github.com/tripflow/tripflow/internal/storage"
	"github.com/tripflow/tripflow/internal/types"
)

// fallbackDestination is used when plan creation receives an empty
// destination. Creation always succeeds; garbage in upstream is not
// this component's error to surface.
const fallbackDestination = "your destination"

// ExecutorFunc performs one step's external work. It receives the plan
// snapshot and the results of earlier completed steps.
type ExecutorFunc func(ctx context.Context, plan *types.Plan, prior []*research.Result) (*research.Result, error)

// Orchestrator is the plan state machine.
type Orchestrator struct {
	store     storage.Storage
	hub       *hub.Hub
	executors map[types.StepType]ExecutorFunc
	stepDelay time.Duration

	// cache is a read-through cache over the store. The store stays the
	// sole authority: the cache starts empty on process start and is
	// repopulated from the store on first read.
	mu    sync.RWMutex
	cache map[string]*types.Plan

	loops sync.WaitGroup
}

// Config holds orchestrator configuration
type Config struct {
	Store      storage.Storage
	Hub        *hub.Hub
	Researcher *research.Researcher

	// StepDelay is the fixed pause between steps. It bounds the request
	// rate to the generation provider and gives subscribers time to
	// render each transition. Default: 2s.
	StepDelay time.Duration

	// Executors overrides the step dispatch table (used by tests). When
	// nil, the table is built from Researcher.
	Executors map[types.StepType]ExecutorFunc
}

// New creates an orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil || cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	executors := cfg.Executors
	if executors == nil {
		if cfg.Researcher == nil {
			return nil, fmt.Errorf("researcher is required when no executor table is given")
		}
		executors = defaultExecutors(cfg.Researcher)
	}

	stepDelay := cfg.StepDelay
	if stepDelay <= 0 {
		stepDelay = 2 * time.Second
	}

	return &Orchestrator{
		store:     cfg.Store,
		hub:       cfg.Hub,
		executors: executors,
		stepDelay: stepDelay,
		cache:     make(map[string]*types.Plan),
	}, nil
}

// defaultExecutors wires each step type to its researcher operation.
func defaultExecutors(r *research.Researcher) map[types.StepType]ExecutorFunc {
	return map[types.StepType]ExecutorFunc{
		types.StepWeatherCheck: func(ctx context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			return r.CheckWeather(ctx, plan.Destination, plan.DurationDays)
		},
		types.StepEventsSearch: func(ctx context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			return r.SearchEvents(ctx, plan.Destination, plan.DurationDays)
		},
		types.StepAccommodationSearch: func(ctx context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			return r.SearchAccommodation(ctx, plan.Destination, plan.DurationDays)
		},
		types.StepItineraryGeneration: func(ctx context.Context, plan *types.Plan, prior []*research.Result) (*research.Result, error) {
			return r.GenerateItinerary(ctx, plan.Destination, plan.DurationDays, prior)
		},
	}
}

// CreatePlan builds a plan with its four steps in canonical order, all
// pending, persists it, and returns a snapshot immediately. It does not
// wait for any step to run.
func (o *Orchestrator) CreatePlan(ctx context.Context, destination string, durationDays int) (*types.Plan, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		destination = fallbackDestination
	}
	if durationDays < 1 {
		durationDays = 1
	}

	plan := types.NewPlan(destination, durationDays)
	if err := o.store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to persist plan: %w", err)
	}

	o.mu.Lock()
	o.cache[plan.ID] = plan.Clone()
	o.mu.Unlock()

	o.emit(ctx, events.NewPlanCreatedEvent(plan.ID,
		fmt.Sprintf("Planning a %d-day trip to %s", durationDays, destination)))

	return plan.Clone(), nil
}

// GetPlan returns a point-in-time snapshot of a plan for polling.
// Returns storage.ErrPlanNotFound when the plan does not exist.
func (o *Orchestrator) GetPlan(ctx context.Context, planID string) (*types.Plan, error) {
	o.mu.RLock()
	cached, ok := o.cache[planID]
	if ok {
		snapshot := cached.Clone()
		o.mu.RUnlock()
		return snapshot, nil
	}
	o.mu.RUnlock()

	plan, err := o.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.cache[planID] = plan.Clone()
	o.mu.Unlock()

	return plan, nil
}

// StartAutonomousAdvancement begins the self-driving advancement loop
// for a plan. Fire-and-forget: the caller observes progress through the
// hub or by polling GetPlan. The loop stops when the plan reaches a
// terminal status or ctx is canceled.
func (o *Orchestrator) StartAutonomousAdvancement(ctx context.Context, planID string) {
	o.loops.Add(1)
	go func() {
		defer o.loops.Done()
		o.advance(ctx, planID)
	}()
}

// Wait blocks until every started advancement loop has returned.
func (o *Orchestrator) Wait() {
	o.loops.Wait()
}

// loadPlan reads a plan for advancement, cache first, store on miss.
func (o *Orchestrator) loadPlan(ctx context.Context, planID string) (*types.Plan, error) {
	o.mu.RLock()
	cached, ok := o.cache[planID]
	if ok {
		plan := cached.Clone()
		o.mu.RUnlock()
		return plan, nil
	}
	o.mu.RUnlock()

	return o.store.GetPlan(ctx, planID)
}

// persist writes the plan to the store and refreshes the cache. The
// store write already retries transient lock errors; a persistent store
// failure is fatal for the current advancement step.
func (o *Orchestrator) persist(ctx context.Context, plan *types.Plan) error {
	plan.UpdatedAt = time.Now().UTC()
	if err := o.store.SavePlan(ctx, plan); err != nil {
		return err
	}
	o.mu.Lock()
	o.cache[plan.ID] = plan.Clone()
	o.mu.Unlock()
	return nil
}

// emit mirrors a transition to live subscribers and appends it to the
// persisted audit trail. Both paths are best-effort: a failure here
// never affects the plan's own persisted state.
func (o *Orchestrator) emit(ctx context.Context, event *events.PlanEvent) {
	o.hub.Broadcast(event)
	if err := o.store.StorePlanEvent(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store plan event %s: %v\n", event.ID, err)
	}
}

// marshalResult encodes an executor result as the step's opaque payload.
func marshalResult(result *research.Result) (json.RawMessage, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step result: %w", err)
	}
	return payload, nil
}
