package research

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tripflow/tripflow/internal/types"
)

// chunkDays is the maximum day-range requested per generation call.
// Single-call generation has a hard output-length limit that silently
// truncates long itineraries; keeping windows this small keeps every
// response comfortably under it.
const chunkDays = 2

// chunkMaxTokens bounds each window's generation call.
const chunkMaxTokens = 700

// dayHeaderPattern matches the strict per-day header format the prompts
// demand: a "**Day N: Theme**" line.
var dayHeaderPattern = regexp.MustCompile(`(?m)^\*\*Day (\d+):[^\n]*\*\*`)

// GenerateItinerary produces a day-by-day itinerary covering exactly
// durationDays days. It requests the itinerary in small day-range
// windows, validates that every day number is present in the combined
// output, and synthesizes templated fallback days for any that are
// missing. The returned itinerary always contains a day block for every
// day from 1 to durationDays, even if every generation call fails.
func (r *Researcher) GenerateItinerary(ctx context.Context, destination string, durationDays int, prior []*Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if durationDays < 1 {
		durationDays = 1
	}

	result := &Result{
		Type:        string(types.StepItineraryGeneration),
		Destination: destination,
	}

	priorCtx := priorContext(prior)
	var b strings.Builder
	fallbackUsed := false

	for start := 1; start <= durationDays; start += chunkDays {
		end := start + chunkDays - 1
		if end > durationDays {
			end = durationDays
		}

		text, ok := r.generateWindow(ctx, destination, durationDays, start, end, priorCtx)
		if !ok {
			// A failed window gets fallback days immediately; remaining
			// windows are still attempted.
			for day := start; day <= end; day++ {
				b.WriteString(fallbackDayBlock(destination, day))
				b.WriteString("\n")
			}
			fallbackUsed = true
			continue
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n\n")
	}

	itinerary := b.String()

	// Truncation check: every day number from 1..durationDays must have
	// a header block. Missing days get templated fallbacks, appended in
	// ascending order.
	present := presentDays(itinerary)
	for day := 1; day <= durationDays; day++ {
		if present[day] {
			continue
		}
		itinerary += fallbackDayBlock(destination, day) + "\n"
		fallbackUsed = true
	}

	result.Itinerary = itinerary
	if fallbackUsed {
		result.Fallback = "Some days use a generic template; regenerate later for tailored suggestions."
	}
	return result, nil
}

// generateWindow requests one day-range of the itinerary.
func (r *Researcher) generateWindow(ctx context.Context, destination string, durationDays, start, end int, priorCtx string) (string, bool) {
	system := "You are a travel itinerary writer. Output only the requested day blocks in the exact format given, nothing else."

	var dayRange string
	if start == end {
		dayRange = fmt.Sprintf("day %d", start)
	} else {
		dayRange = fmt.Sprintf("days %d through %d", start, end)
	}

	user := fmt.Sprintf(`Write %s (and only %s) of a %d-day trip to %s.

Format each day exactly as:
**Day N: Theme**
Morning: activity
Afternoon: activity
Evening: activity
Night: activity
%s`, dayRange, dayRange, durationDays, destination, priorCtx)

	return r.generate(ctx, system, user, chunkMaxTokens)
}

// priorContext folds earlier step results into a prompt fragment so the
// itinerary can reference real weather, events, and lodging findings.
func priorContext(prior []*Result) string {
	var parts []string
	for _, p := range prior {
		if p == nil {
			continue
		}
		switch {
		case p.Forecast != "":
			parts = append(parts, "Weather outlook: "+truncate(p.Forecast, 500))
		case len(p.Events) > 0:
			parts = append(parts, "Local events: "+truncate(strings.Join(p.Events, "; "), 500))
		case len(p.Accommodations) > 0:
			parts = append(parts, "Lodging options: "+truncate(strings.Join(p.Accommodations, "; "), 500))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "\nContext from earlier research:\n" + strings.Join(parts, "\n")
}

// truncate truncates a string to maxLen characters, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// presentDays returns the set of day numbers that have a header block.
func presentDays(itinerary string) map[int]bool {
	present := make(map[int]bool)
	for _, m := range dayHeaderPattern.FindAllStringSubmatch(itinerary, -1) {
		if day, err := strconv.Atoi(m[1]); err == nil {
			present[day] = true
		}
	}
	return present
}

// fallbackDayBlock synthesizes one templated day in the same strict
// format the prompts demand. Generic but destination-named, so a fully
// failed generation run still yields a usable itinerary.
func fallbackDayBlock(destination string, day int) string {
	return fmt.Sprintf(`**Day %d: Exploring %s**
Morning: Walk the central districts and main landmarks of %s.
Afternoon: Visit a museum, gallery, or local market.
Evening: Dinner at a restaurant serving regional cuisine.
Night: Relax at your accommodation or take a short evening stroll.
`, day, destination, destination)
}
