package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/hub"
	"github.com/tripflow/tripflow/internal/research"
	"github.com/tripflow/tripflow/internal/storage"
	"github.com/tripflow/tripflow/internal/types"
)

func newTestStore(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(context.Background(), &storage.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// okExecutors completes every step with a minimal result.
func okExecutors() map[types.StepType]ExecutorFunc {
	table := make(map[types.StepType]ExecutorFunc)
	for _, st := range types.CanonicalStepOrder {
		stepType := st
		table[stepType] = func(_ context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			return &research.Result{Type: string(stepType), Destination: plan.Destination}, nil
		}
	}
	return table
}

func newTestOrchestrator(t *testing.T, store storage.Storage, h *hub.Hub, executors map[types.StepType]ExecutorFunc) *Orchestrator {
	t.Helper()
	orch, err := New(&Config{
		Store:     store,
		Hub:       h,
		StepDelay: time.Millisecond,
		Executors: executors,
	})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}
	return orch
}

func TestCreatePlanScenario(t *testing.T) {
	store := newTestStore(t)
	orch := newTestOrchestrator(t, store, hub.New(), okExecutors())

	plan, err := orch.CreatePlan(context.Background(), "Tokyo", 5)
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if plan.Status != types.PlanStatusPlanning {
		t.Errorf("expected status planning, got %s", plan.Status)
	}
	if len(plan.Steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(plan.Steps))
	}
	for i, st := range types.CanonicalStepOrder {
		if plan.Steps[i].Type != st {
			t.Errorf("step %d: expected %s, got %s", i, st, plan.Steps[i].Type)
		}
		if plan.Steps[i].Status != types.StepStatusPending {
			t.Errorf("step %d: expected pending, got %s", i, plan.Steps[i].Status)
		}
	}

	// CreatePlan persists before returning.
	stored, err := store.GetPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("plan not persisted: %v", err)
	}
	if stored.ID != plan.ID {
		t.Errorf("stored plan id mismatch: %s", stored.ID)
	}
}

func TestCreatePlanFallbacks(t *testing.T) {
	store := newTestStore(t)
	orch := newTestOrchestrator(t, store, hub.New(), okExecutors())

	plan, err := orch.CreatePlan(context.Background(), "   ", 0)
	if err != nil {
		t.Fatalf("CreatePlan must always succeed: %v", err)
	}
	if plan.Destination == "" || plan.Destination == "   " {
		t.Errorf("expected fallback destination, got %q", plan.Destination)
	}
	if plan.DurationDays != 1 {
		t.Errorf("expected duration clamped to 1, got %d", plan.DurationDays)
	}
}

func waitTerminal(t *testing.T, orch *Orchestrator, planID string) *types.Plan {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		plan, err := orch.GetPlan(context.Background(), planID)
		if err != nil {
			t.Fatalf("GetPlan failed: %v", err)
		}
		if plan.Status.IsTerminal() {
			return plan
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("plan %s did not reach a terminal status", planID)
	return nil
}

func TestAdvancementCompletesAllSteps(t *testing.T) {
	store := newTestStore(t)
	h := hub.New()
	orch := newTestOrchestrator(t, store, h, okExecutors())
	ctx := context.Background()

	plan, err := orch.CreatePlan(ctx, "Tokyo", 5)
	if err != nil {
		t.Fatal(err)
	}
	orch.StartAutonomousAdvancement(ctx, plan.ID)

	final := waitTerminal(t, orch, plan.ID)
	if final.Status != types.PlanStatusCompleted {
		t.Errorf("expected completed, got %s", final.Status)
	}
	for i, step := range final.Steps {
		if step.Status != types.StepStatusCompleted {
			t.Errorf("step %d: expected completed, got %s", i, step.Status)
		}
		if step.Progress != 100 {
			t.Errorf("step %d: expected progress 100, got %d", i, step.Progress)
		}
		if len(step.Result) == 0 {
			t.Errorf("step %d: missing result", i)
		}
	}
}

func TestStepsExecuteInCreationOrder(t *testing.T) {
	store := newTestStore(t)
	var mu sync.Mutex
	var order []types.StepType

	table := make(map[types.StepType]ExecutorFunc)
	for _, st := range types.CanonicalStepOrder {
		stepType := st
		table[stepType] = func(_ context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			mu.Lock()
			order = append(order, stepType)
			mu.Unlock()
			return &research.Result{Type: string(stepType)}, nil
		}
	}

	orch := newTestOrchestrator(t, store, hub.New(), table)
	ctx := context.Background()
	plan, err := orch.CreatePlan(ctx, "Tokyo", 3)
	if err != nil {
		t.Fatal(err)
	}
	orch.StartAutonomousAdvancement(ctx, plan.ID)
	waitTerminal(t, orch, plan.ID)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 4 {
		t.Fatalf("expected 4 executions, got %d", len(order))
	}
	for i, st := range types.CanonicalStepOrder {
		if order[i] != st {
			t.Errorf("execution %d: expected %s, got %s", i, st, order[i])
		}
	}
}

func TestFailedStepDoesNotBlockPlan(t *testing.T) {
	store := newTestStore(t)
	table := okExecutors()
	table[types.StepEventsSearch] = func(context.Context, *types.Plan, []*research.Result) (*research.Result, error) {
		return nil, errors.New("events provider exploded")
	}

	h := hub.New()
	orch := newTestOrchestrator(t, store, h, table)
	ctx := context.Background()

	plan, err := orch.CreatePlan(ctx, "Tokyo", 5)
	if err != nil {
		t.Fatal(err)
	}
	sub := h.Subscribe(plan.ID)
	orch.StartAutonomousAdvancement(ctx, plan.ID)

	final := waitTerminal(t, orch, plan.ID)
	if final.Status != types.PlanStatusCompleted {
		t.Errorf("plan must complete despite a failed step, got %s", final.Status)
	}

	var failed, completed int
	for _, step := range final.Steps {
		switch step.Status {
		case types.StepStatusFailed:
			failed++
			if len(step.Result) != 0 {
				t.Error("failed step must not carry a result")
			}
		case types.StepStatusCompleted:
			completed++
		}
	}
	if failed != 1 || completed != 3 {
		t.Errorf("expected 1 failed and 3 completed steps, got %d/%d", failed, completed)
	}

	// The failure is visible on the event stream.
	sawFailure := false
	for done := false; !done; {
		select {
		case e := <-sub.Events:
			if e.Type == events.EventTypeStepFailed {
				sawFailure = true
			}
			if e.Type == events.EventTypePlanCompleted {
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}
	if !sawFailure {
		t.Error("expected a step_failed event on the hub")
	}
}

func TestGetPlanSnapshotIdempotent(t *testing.T) {
	store := newTestStore(t)
	orch := newTestOrchestrator(t, store, hub.New(), okExecutors())
	ctx := context.Background()

	plan, err := orch.CreatePlan(ctx, "Tokyo", 5)
	if err != nil {
		t.Fatal(err)
	}

	first, err := orch.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := orch.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}

	if first.Status != second.Status || first.UpdatedAt != second.UpdatedAt {
		t.Error("repeated GetPlan without advancement returned different snapshots")
	}
	for i := range first.Steps {
		if first.Steps[i].Status != second.Steps[i].Status {
			t.Errorf("step %d status differs between snapshots", i)
		}
	}

	// Mutating a snapshot must not leak into later snapshots.
	first.Steps[0].Status = types.StepStatusCompleted
	third, err := orch.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if third.Steps[0].Status != types.StepStatusPending {
		t.Error("snapshot mutation leaked into orchestrator state")
	}
}

func TestGetPlanNotFound(t *testing.T) {
	store := newTestStore(t)
	orch := newTestOrchestrator(t, store, hub.New(), okExecutors())
	if _, err := orch.GetPlan(context.Background(), "trip-missing"); !errors.Is(err, storage.ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestPlansAdvanceIndependently(t *testing.T) {
	store := newTestStore(t)

	// Plan A's executors stall until released; plan B's complete fast.
	release := make(chan struct{})
	var stallID string
	var mu sync.Mutex

	table := make(map[types.StepType]ExecutorFunc)
	for _, st := range types.CanonicalStepOrder {
		stepType := st
		table[stepType] = func(ctx context.Context, plan *types.Plan, _ []*research.Result) (*research.Result, error) {
			mu.Lock()
			stalled := plan.ID == stallID
			mu.Unlock()
			if stalled {
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &research.Result{Type: string(stepType)}, nil
		}
	}

	orch := newTestOrchestrator(t, store, hub.New(), table)
	ctx := context.Background()

	planA, err := orch.CreatePlan(ctx, "Tokyo", 5)
	if err != nil {
		t.Fatal(err)
	}
	planB, err := orch.CreatePlan(ctx, "Lisbon", 3)
	if err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	stallID = planA.ID
	mu.Unlock()

	orch.StartAutonomousAdvancement(ctx, planA.ID)
	orch.StartAutonomousAdvancement(ctx, planB.ID)

	// B completes while A is still stalled on its first step.
	finalB := waitTerminal(t, orch, planB.ID)
	if finalB.Status != types.PlanStatusCompleted {
		t.Errorf("plan B did not complete: %s", finalB.Status)
	}
	current, err := orch.GetPlan(ctx, planA.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status.IsTerminal() {
		t.Error("plan A should still be running while stalled")
	}

	close(release)
	finalA := waitTerminal(t, orch, planA.ID)
	if finalA.Status != types.PlanStatusCompleted {
		t.Errorf("plan A did not complete after release: %s", finalA.Status)
	}
}

func TestAdvancementEventsOrdered(t *testing.T) {
	store := newTestStore(t)
	h := hub.New()
	orch := newTestOrchestrator(t, store, h, okExecutors())
	ctx := context.Background()

	plan, err := orch.CreatePlan(ctx, "Tokyo", 2)
	if err != nil {
		t.Fatal(err)
	}
	sub := h.Subscribe(plan.ID)
	orch.StartAutonomousAdvancement(ctx, plan.ID)
	waitTerminal(t, orch, plan.ID)

	var got []events.EventType
	for done := false; !done; {
		select {
		case e := <-sub.Events:
			got = append(got, e.Type)
			if e.Type == events.EventTypePlanCompleted {
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}

	var want []events.EventType
	for range types.CanonicalStepOrder {
		want = append(want, events.EventTypeStepStarted, events.EventTypeStepCompleted)
	}
	want = append(want, events.EventTypePlanCompleted)

	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestAdvancementPersistsAuditTrail(t *testing.T) {
	store := newTestStore(t)
	orch := newTestOrchestrator(t, store, hub.New(), okExecutors())
	ctx := context.Background()

	plan, err := orch.CreatePlan(ctx, "Tokyo", 2)
	if err != nil {
		t.Fatal(err)
	}
	orch.StartAutonomousAdvancement(ctx, plan.ID)
	waitTerminal(t, orch, plan.ID)
	orch.Wait()

	evts, err := store.GetPlanEvents(ctx, plan.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	// plan_created + 4x(started, completed) + plan_completed
	if len(evts) != 10 {
		for _, e := range evts {
			t.Logf("event: %s %s", e.Type, e.Message)
		}
		t.Fatalf("expected 10 persisted events, got %d", len(evts))
	}
}

func TestCancellationStopsAdvancement(t *testing.T) {
	store := newTestStore(t)

	started := make(chan struct{}, 8)
	table := make(map[types.StepType]ExecutorFunc)
	for _, st := range types.CanonicalStepOrder {
		stepType := st
		table[stepType] = func(ctx context.Context, _ *types.Plan, _ []*research.Result) (*research.Result, error) {
			started <- struct{}{}
			return &research.Result{Type: string(stepType)}, nil
		}
	}

	orch, err := New(&Config{
		Store:     store,
		Hub:       hub.New(),
		StepDelay: time.Hour, // loop parks in the inter-step delay
		Executors: table,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	plan, err := orch.CreatePlan(ctx, "Tokyo", 5)
	if err != nil {
		t.Fatal(err)
	}
	orch.StartAutonomousAdvancement(ctx, plan.ID)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first step never ran")
	}
	cancel()
	orch.Wait()

	final, err := orch.GetPlan(context.Background(), plan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status.IsTerminal() {
		t.Errorf("canceled plan should not be terminal, got %s", final.Status)
	}
	if len(started) != 0 {
		t.Errorf("no further steps should run after cancellation, got %d extra", len(started))
	}
}

func TestPriorResultsReachLaterSteps(t *testing.T) {
	store := newTestStore(t)

	var itineraryPrior []*research.Result
	var mu sync.Mutex
	table := okExecutors()
	table[types.StepItineraryGeneration] = func(_ context.Context, plan *types.Plan, prior []*research.Result) (*research.Result, error) {
		mu.Lock()
		itineraryPrior = prior
		mu.Unlock()
		return &research.Result{Type: string(types.StepItineraryGeneration), Itinerary: fmt.Sprintf("**Day 1: %s**", plan.Destination)}, nil
	}

	orch := newTestOrchestrator(t, store, hub.New(), table)
	ctx := context.Background()
	plan, err := orch.CreatePlan(ctx, "Tokyo", 1)
	if err != nil {
		t.Fatal(err)
	}
	orch.StartAutonomousAdvancement(ctx, plan.ID)
	waitTerminal(t, orch, plan.ID)
	orch.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(itineraryPrior) != 3 {
		t.Fatalf("itinerary step expected 3 prior results, got %d", len(itineraryPrior))
	}
	if itineraryPrior[0].Type != string(types.StepWeatherCheck) {
		t.Errorf("prior results out of order: %s", itineraryPrior[0].Type)
	}
}
