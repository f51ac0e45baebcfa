package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of transition that occurred while a plan
// was being advanced.
type EventType string

const (
	// EventTypePlanCreated indicates a plan was created and persisted
	EventTypePlanCreated EventType = "plan_created"
	// EventTypeStepStarted indicates a step moved from pending to in_progress
	EventTypeStepStarted EventType = "step_started"
	// EventTypeStepCompleted indicates a step completed with a result
	EventTypeStepCompleted EventType = "step_completed"
	// EventTypeStepFailed indicates a step's executor returned an error
	EventTypeStepFailed EventType = "step_failed"
	// EventTypePlanCompleted indicates no step remained pending
	EventTypePlanCompleted EventType = "plan_completed"
)

// IsValid checks if the event type value is valid
func (t EventType) IsValid() bool {
	switch t {
	case EventTypePlanCreated, EventTypeStepStarted, EventTypeStepCompleted,
		EventTypeStepFailed, EventTypePlanCompleted:
		return true
	}
	return false
}

// EventSeverity indicates how a consumer should render an event.
type EventSeverity string

const (
	SeverityInfo  EventSeverity = "info"
	SeverityError EventSeverity = "error"
)

// PlanEvent is one step-transition record. Events are broadcast to live
// subscribers through the hub and persisted to the plan_events table as
// an audit trail.
type PlanEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	PlanID    string          `json:"plan_id"`
	StepID    string          `json:"step_id,omitempty"`
	StepType  string          `json:"step_type,omitempty"`
	Severity  EventSeverity   `json:"severity"`
	Message   string          `json:"message"`
	Result    json.RawMessage `json:"result,omitempty"`
}
