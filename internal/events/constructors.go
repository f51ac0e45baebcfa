package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewPlanCreatedEvent creates a PlanEvent recording that a plan was
// created and persisted.
func NewPlanCreatedEvent(planID, message string) *PlanEvent {
	return &PlanEvent{
		ID:        uuid.New().String(),
		Type:      EventTypePlanCreated,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		Severity:  SeverityInfo,
		Message:   message,
	}
}

// NewStepStartedEvent creates a PlanEvent for a step entering
// in_progress. Message carries the step's human-readable description.
func NewStepStartedEvent(planID, stepID, stepType, message string) *PlanEvent {
	return &PlanEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeStepStarted,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		StepID:    stepID,
		StepType:  stepType,
		Severity:  SeverityInfo,
		Message:   message,
	}
}

// NewStepCompletedEvent creates a PlanEvent for a completed step,
// carrying the step's result payload.
func NewStepCompletedEvent(planID, stepID, stepType, message string, result json.RawMessage) *PlanEvent {
	return &PlanEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeStepCompleted,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		StepID:    stepID,
		StepType:  stepType,
		Severity:  SeverityInfo,
		Message:   message,
		Result:    result,
	}
}

// NewStepFailedEvent creates a PlanEvent for a step whose executor
// returned an error.
func NewStepFailedEvent(planID, stepID, stepType, message string) *PlanEvent {
	return &PlanEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeStepFailed,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		StepID:    stepID,
		StepType:  stepType,
		Severity:  SeverityError,
		Message:   message,
	}
}

// NewPlanCompletedEvent creates a PlanEvent recording that a plan
// reached its terminal status.
func NewPlanCompletedEvent(planID, message string) *PlanEvent {
	return &PlanEvent{
		ID:        uuid.New().String(),
		Type:      EventTypePlanCompleted,
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		Severity:  SeverityInfo,
		Message:   message,
	}
}
