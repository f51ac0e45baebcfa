// Package research implements the plan's step executors: weather,
// local events, accommodation, and the chunked itinerary generator.
//
// Executors are deliberately forgiving: a provider with no data or no
// credential produces a degraded result carrying an error field and a
// human-readable fallback, never an executor error, so the step still
// reaches a terminal state deterministically.
package research

import (
	"context"
	"net/http"
	"time"
)

// Generator is the text-generation capability executors depend on.
// *ai.Client satisfies it; tests substitute stubs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Result is the payload a step executor produces. Only the fields for
// the executor's step type are populated; Error and Fallback are set on
// degraded results.
type Result struct {
	Type           string   `json:"type"`
	Destination    string   `json:"destination"`
	Forecast       string   `json:"forecast,omitempty"`
	Events         []string `json:"events,omitempty"`
	Accommodations []string `json:"accommodations,omitempty"`
	Itinerary      string   `json:"itinerary,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Error          string   `json:"error,omitempty"`
	Fallback       string   `json:"fallback,omitempty"`
}

// Degraded reports whether the result came from a fallback path.
func (r *Result) Degraded() bool {
	return r.Error != ""
}

// Researcher holds the shared dependencies of all step executors.
type Researcher struct {
	gen        Generator // nil means generation is unavailable; fallbacks apply
	providers  ProviderConfig
	httpClient *http.Client
}

// New creates a researcher. gen may be nil, in which case every
// generation-backed field falls back to templated text.
func New(gen Generator, providers ProviderConfig) *Researcher {
	return &Researcher{
		gen:       gen,
		providers: providers,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// generate calls the generator if one is configured. The boolean is
// false when no usable text came back.
func (r *Researcher) generate(ctx context.Context, system, user string, maxTokens int) (string, bool) {
	if r.gen == nil {
		return "", false
	}
	text, err := r.gen.Generate(ctx, system, user, maxTokens)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}
