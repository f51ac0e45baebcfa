package research

import (
	"context"
	"fmt"

	"github.com/tripflow/tripflow/internal/types"
)

// ErrNotConfigured is the error text a degraded result carries when a
// provider has no credential or endpoint.
const ErrNotConfigured = "not configured"

// CheckWeather looks up the weather outlook for the destination. The
// only error it can return is a canceled context; provider problems
// produce a degraded result instead.
func (r *Researcher) CheckWeather(ctx context.Context, destination string, durationDays int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Type:        string(types.StepWeatherCheck),
		Destination: destination,
	}

	if !r.providers.Weather.Configured() {
		result.Error = ErrNotConfigured
		result.Fallback = fmt.Sprintf(
			"Live weather data is unavailable for %s. Check a local forecast before departure and pack for a range of conditions.",
			destination)
		result.Recommendation = "Pack layered clothing and a compact umbrella."
		return result, nil
	}

	body, err := r.fetchProvider(ctx, r.providers.Weather, destination)
	if err != nil {
		result.Error = err.Error()
		result.Fallback = fmt.Sprintf(
			"Weather lookup for %s failed. Check a local forecast before departure.", destination)
		result.Recommendation = "Pack layered clothing and a compact umbrella."
		return result, nil
	}

	result.Forecast = body
	result.Recommendation = r.weatherRecommendation(ctx, destination, durationDays, body)
	return result, nil
}

// weatherRecommendation turns the raw forecast into a short packing and
// planning tip. Generation failure degrades to a canned line.
func (r *Researcher) weatherRecommendation(ctx context.Context, destination string, durationDays int, forecast string) string {
	system := "You are a concise travel assistant. Answer in at most three sentences."
	user := fmt.Sprintf(
		"Based on this forecast data for %s, give packing and scheduling advice for a %d-day trip:\n\n%s",
		destination, durationDays, forecast)
	if text, ok := r.generate(ctx, system, user, 300); ok {
		return text
	}
	return fmt.Sprintf("Review the forecast for %s and plan outdoor activities on the clearest days.", destination)
}
