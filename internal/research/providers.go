package research

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxProviderBody caps how much of a provider response is kept. The
// body is only folded into prompts and summaries, not parsed further.
const maxProviderBody = 8 * 1024

// ProviderConfig holds the endpoints for the external data providers.
// Any endpoint may be unconfigured; executors then return degraded
// results rather than failing.
type ProviderConfig struct {
	Weather ProviderEndpoint `yaml:"weather"`
	Events  ProviderEndpoint `yaml:"events"`
	Lodging ProviderEndpoint `yaml:"lodging"`
}

// ProviderEndpoint is one HTTP data provider. The destination is sent
// as the "q" query parameter and the key as "key".
type ProviderEndpoint struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// Configured reports whether the endpoint can be called at all.
func (e ProviderEndpoint) Configured() bool {
	return e.URL != ""
}

// ProviderConfigFromEnv builds provider config from environment
// variables:
//
//	TRIPFLOW_WEATHER_URL, TRIPFLOW_WEATHER_API_KEY
//	TRIPFLOW_EVENTS_URL, TRIPFLOW_EVENTS_API_KEY
//	TRIPFLOW_LODGING_URL, TRIPFLOW_LODGING_API_KEY
func ProviderConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		Weather: ProviderEndpoint{
			URL:    os.Getenv("TRIPFLOW_WEATHER_URL"),
			APIKey: os.Getenv("TRIPFLOW_WEATHER_API_KEY"),
		},
		Events: ProviderEndpoint{
			URL:    os.Getenv("TRIPFLOW_EVENTS_URL"),
			APIKey: os.Getenv("TRIPFLOW_EVENTS_API_KEY"),
		},
		Lodging: ProviderEndpoint{
			URL:    os.Getenv("TRIPFLOW_LODGING_URL"),
			APIKey: os.Getenv("TRIPFLOW_LODGING_API_KEY"),
		},
	}
}

// LoadProviderConfig reads a providers.yaml file and overlays it on the
// environment-derived config. A missing file is not an error; the
// environment config is returned unchanged.
func LoadProviderConfig(path string) (ProviderConfig, error) {
	cfg := ProviderConfigFromEnv()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read provider config: %w", err)
	}

	var fileCfg ProviderConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse provider config: %w", err)
	}

	overlay := func(dst *ProviderEndpoint, src ProviderEndpoint) {
		if src.URL != "" {
			dst.URL = src.URL
		}
		if src.APIKey != "" {
			dst.APIKey = src.APIKey
		}
	}
	overlay(&cfg.Weather, fileCfg.Weather)
	overlay(&cfg.Events, fileCfg.Events)
	overlay(&cfg.Lodging, fileCfg.Lodging)
	return cfg, nil
}

// fetchProvider performs the HTTP call to a data provider and returns
// the (truncated) response body.
func (r *Researcher) fetchProvider(ctx context.Context, endpoint ProviderEndpoint, destination string) (string, error) {
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return "", fmt.Errorf("invalid provider url: %w", err)
	}
	q := u.Query()
	q.Set("q", destination)
	if endpoint.APIKey != "" {
		q.Set("key", endpoint.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return "", fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return string(body), nil
}
