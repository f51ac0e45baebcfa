package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tripflow/tripflow/internal/events"
	"github.com/tripflow/tripflow/internal/research"
	"github.com/tripflow/tripflow/internal/types"
)

// advance is the per-plan advancement loop. Each iteration loads the
// plan, starts the first pending step, runs its executor, persists the
// outcome, and pauses for the inter-step delay. A step failure is
// recorded and the loop moves on; only a store failure or cancellation
// stops advancement early.
func (o *Orchestrator) advance(ctx context.Context, planID string) {
	for {
		if ctx.Err() != nil {
			fmt.Fprintf(os.Stderr, "advancement of %s canceled: %v\n", planID, ctx.Err())
			return
		}

		plan, err := o.loadPlan(ctx, planID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load plan %s: %v\n", planID, err)
			return
		}
		if plan.Status.IsTerminal() {
			return
		}

		step := plan.NextPending()
		if step == nil {
			// Terminal success path: no step remains pending. Individual
			// step failures do not change this outcome; partial failure is
			// surfaced at the step level only.
			plan.Status = types.PlanStatusCompleted
			if err := o.persist(ctx, plan); err != nil {
				fmt.Fprintf(os.Stderr, "failed to persist completed plan %s: %v\n", planID, err)
				return
			}
			o.emit(ctx, events.NewPlanCompletedEvent(plan.ID,
				fmt.Sprintf("Trip plan for %s is ready", plan.Destination)))
			return
		}

		plan.Status = types.PlanStatusInProgress
		step.Status = types.StepStatusInProgress
		step.Progress = 10
		if err := o.persist(ctx, plan); err != nil {
			fmt.Fprintf(os.Stderr, "failed to persist step start for %s: %v\n", planID, err)
			return
		}
		o.emit(ctx, events.NewStepStartedEvent(plan.ID, step.ID, string(step.Type), step.Description))

		result, execErr := o.executeStep(ctx, plan, step)

		var payload json.RawMessage
		if execErr == nil {
			payload, execErr = marshalResult(result)
		}

		if execErr != nil {
			// The plan is not failed and the step is not retried; the loop
			// simply proceeds to the next pending step.
			step.Status = types.StepStatusFailed
			fmt.Fprintf(os.Stderr, "step %s (%s) failed for plan %s: %v\n",
				step.ID, step.Type, planID, execErr)
			o.emit(ctx, events.NewStepFailedEvent(plan.ID, step.ID, string(step.Type), execErr.Error()))
		} else {
			step.Result = payload
			step.Status = types.StepStatusCompleted
			step.Progress = 100
			o.emit(ctx, events.NewStepCompletedEvent(plan.ID, step.ID, string(step.Type),
				fmt.Sprintf("%s completed", step.Description), payload))
		}

		if err := o.persist(ctx, plan); err != nil {
			fmt.Fprintf(os.Stderr, "failed to persist step outcome for %s: %v\n", planID, err)
			return
		}

		select {
		case <-time.After(o.stepDelay):
		case <-ctx.Done():
			return
		}
	}
}

// executeStep dispatches to the matching executor with the results of
// earlier completed steps.
func (o *Orchestrator) executeStep(ctx context.Context, plan *types.Plan, step *types.Step) (*research.Result, error) {
	executor, ok := o.executors[step.Type]
	if !ok {
		return nil, fmt.Errorf("no executor registered for step type %s", step.Type)
	}
	return executor(ctx, plan, priorResults(plan))
}

// priorResults decodes the completed steps' payloads, in creation
// order. Payloads that fail to decode are skipped; executors treat
// prior results as optional context.
func priorResults(plan *types.Plan) []*research.Result {
	var prior []*research.Result
	for _, raw := range plan.CompletedResults() {
		var r research.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		prior = append(prior, &r)
	}
	return prior
}
