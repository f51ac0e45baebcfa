package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/tripflow/tripflow/internal/types"
)

// SearchEvents looks up local events and festivals at the destination.
// Provider problems produce a degraded result, never an executor error.
func (r *Researcher) SearchEvents(ctx context.Context, destination string, durationDays int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Type:        string(types.StepEventsSearch),
		Destination: destination,
	}

	if r.providers.Events.Configured() {
		body, err := r.fetchProvider(ctx, r.providers.Events, destination)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Events = splitListing(body)
		}
	} else {
		result.Error = ErrNotConfigured
	}

	// With no provider data, ask the generator for typical happenings;
	// that still counts as a degraded result since it is not live data.
	if len(result.Events) == 0 {
		system := "You are a concise travel assistant. List one event or activity per line, no numbering."
		user := fmt.Sprintf(
			"List 5 events, festivals, or recurring activities a visitor could look for during a %d-day trip to %s.",
			durationDays, destination)
		if text, ok := r.generate(ctx, system, user, 400); ok {
			result.Events = splitListing(text)
		}
	}

	if len(result.Events) == 0 {
		result.Fallback = fmt.Sprintf(
			"No event listings available for %s. Check local venues and tourism sites on arrival.", destination)
	}

	result.Recommendation = "Book popular events ahead; keep one evening unplanned for local discoveries."
	return result, nil
}

// splitListing breaks a provider or generation response into one entry
// per non-empty line.
func splitListing(text string) []string {
	var entries []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• \t"))
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries
}
