package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plan represents one trip-planning request and its research steps.
// It is the aggregate root: steps are owned exclusively by their plan
// and are never referenced independently.
type Plan struct {
	ID           string     `json:"id"`
	Destination  string     `json:"destination"`
	DurationDays int        `json:"duration_days"`
	Status       PlanStatus `json:"status"`
	Steps        []*Step    `json:"steps"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Step is one unit of work within a plan.
type Step struct {
	ID          string          `json:"id"`
	Type        StepType        `json:"type"`
	Status      StepStatus      `json:"status"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result,omitempty"`
	Progress    int             `json:"progress"`
}

// PlanStatus represents the lifecycle state of a plan.
type PlanStatus string

const (
	PlanStatusPlanning   PlanStatus = "planning"
	PlanStatusInProgress PlanStatus = "in_progress"
	PlanStatusCompleted  PlanStatus = "completed"
	PlanStatusFailed     PlanStatus = "failed"
)

// IsValid checks if the plan status value is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusPlanning, PlanStatusInProgress, PlanStatusCompleted, PlanStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the plan will not be advanced any further.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusFailed
}

// StepStatus represents the lifecycle state of a single step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// IsValid checks if the step status value is valid
func (s StepStatus) IsValid() bool {
	switch s {
	case StepStatusPending, StepStatusInProgress, StepStatusCompleted, StepStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the step has finished, successfully or not.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed
}

// StepType categorizes the kind of research a step performs.
type StepType string

const (
	StepWeatherCheck        StepType = "weather_check"
	StepEventsSearch        StepType = "events_search"
	StepAccommodationSearch StepType = "accommodation_search"
	StepItineraryGeneration StepType = "itinerary_generation"
)

// IsValid checks if the step type value is valid
func (t StepType) IsValid() bool {
	switch t {
	case StepWeatherCheck, StepEventsSearch, StepAccommodationSearch, StepItineraryGeneration:
		return true
	}
	return false
}

// CanonicalStepOrder is the fixed order in which every plan's steps are
// created and executed. Steps are never reordered after creation.
var CanonicalStepOrder = []StepType{
	StepWeatherCheck,
	StepEventsSearch,
	StepAccommodationSearch,
	StepItineraryGeneration,
}

// stepDescriptions maps step types to their human-readable labels.
var stepDescriptions = map[StepType]string{
	StepWeatherCheck:        "Checking weather forecast",
	StepEventsSearch:        "Searching local events",
	StepAccommodationSearch: "Finding accommodation options",
	StepItineraryGeneration: "Generating day-by-day itinerary",
}

// NewPlan builds a plan with its four steps in canonical order, all
// pending, status planning. The caller is responsible for persisting it.
func NewPlan(destination string, durationDays int) *Plan {
	now := time.Now().UTC()
	planID := "trip-" + uuid.New().String()[:8]

	steps := make([]*Step, 0, len(CanonicalStepOrder))
	for i, st := range CanonicalStepOrder {
		steps = append(steps, &Step{
			ID:          fmt.Sprintf("%s-step-%d", planID, i+1),
			Type:        st,
			Status:      StepStatusPending,
			Description: stepDescriptions[st],
		})
	}

	return &Plan{
		ID:           planID,
		Destination:  destination,
		DurationDays: durationDays,
		Status:       PlanStatusPlanning,
		Steps:        steps,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks if the plan has valid field values
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("plan id is required")
	}
	if strings.TrimSpace(p.Destination) == "" {
		return fmt.Errorf("destination is required")
	}
	if p.DurationDays < 1 {
		return fmt.Errorf("duration must be at least 1 day (got %d)", p.DurationDays)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("invalid plan status: %s", p.Status)
	}
	inProgress := 0
	for i, s := range p.Steps {
		if !s.Type.IsValid() {
			return fmt.Errorf("step %d: invalid step type: %s", i, s.Type)
		}
		if !s.Status.IsValid() {
			return fmt.Errorf("step %d: invalid step status: %s", i, s.Status)
		}
		if s.Progress < 0 || s.Progress > 100 {
			return fmt.Errorf("step %d: progress must be between 0 and 100 (got %d)", i, s.Progress)
		}
		if s.Status == StepStatusInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("at most one step may be in_progress (got %d)", inProgress)
	}
	return nil
}

// NextPending returns the first step in creation order that is still
// pending, or nil when every step has reached a terminal status.
func (p *Plan) NextPending() *Step {
	for _, s := range p.Steps {
		if s.Status == StepStatusPending {
			return s
		}
	}
	return nil
}

// StepByID returns the step with the given id, or nil.
func (p *Plan) StepByID(id string) *Step {
	for _, s := range p.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// CompletedResults returns the results of completed steps in creation
// order. Steps that failed or have not run contribute nothing.
func (p *Plan) CompletedResults() []json.RawMessage {
	var results []json.RawMessage
	for _, s := range p.Steps {
		if s.Status == StepStatusCompleted && len(s.Result) > 0 {
			results = append(results, s.Result)
		}
	}
	return results
}

// Clone returns a deep copy of the plan. External readers only ever see
// clones; the orchestrator is the sole mutator of the original.
func (p *Plan) Clone() *Plan {
	cp := *p
	cp.Steps = make([]*Step, len(p.Steps))
	for i, s := range p.Steps {
		sc := *s
		if s.Result != nil {
			sc.Result = make(json.RawMessage, len(s.Result))
			copy(sc.Result, s.Result)
		}
		cp.Steps[i] = &sc
	}
	return &cp
}
