package research

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/internal/types"
)

// SearchAccommodation looks up lodging options at the destination.
// Provider problems produce a degraded result, never an executor error.
func (r *Researcher) SearchAccommodation(ctx context.Context, destination string, durationDays int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Type:        string(types.StepAccommodationSearch),
		Destination: destination,
	}

	if r.providers.Lodging.Configured() {
		body, err := r.fetchProvider(ctx, r.providers.Lodging, destination)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Accommodations = splitListing(body)
		}
	} else {
		result.Error = ErrNotConfigured
	}

	if len(result.Accommodations) == 0 {
		system := "You are a concise travel assistant. List one option per line, no numbering."
		user := fmt.Sprintf(
			"Suggest 4 neighborhoods or accommodation types to consider for a %d-night stay in %s, with a short reason each.",
			durationDays, destination)
		if text, ok := r.generate(ctx, system, user, 400); ok {
			result.Accommodations = splitListing(text)
		}
	}

	if len(result.Accommodations) == 0 {
		result.Fallback = fmt.Sprintf(
			"No lodging listings available for %s. Compare central neighborhoods on a booking site.", destination)
	}

	result.Recommendation = "Stay near a transit hub to cut daily travel time."
	return result, nil
}
