// Package market provides the live-data enrichment providers: inflation,
// market quotes, financial news, tax estimates and investment projections.
//
// Every network-backed provider is fault-isolated: on any transport or
// decode failure it returns its fallback snapshot with Status "fallback"
// instead of an error, so the enrichment stage never has to retry or
// abort. The tax estimator and projection calculator are pure functions.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Snapshot statuses.
const (
	StatusSuccess  = "success"
	StatusFallback = "fallback"
)

const defaultProviderTimeout = 10 * time.Second

// Fallback inflation estimates used when the upstream sources are
// unreachable. Values mirror recent long-run averages.
const (
	fallbackInflationIndia = 4.8
	fallbackInflationUS    = 3.1
)

// InflationSnapshot is the current year-over-year CPI inflation reading.
type InflationSnapshot struct {
	Region budget.Region `json:"region"`
	Rate   float64       `json:"inflation_rate"`
	Source string        `json:"source"`
	Status string        `json:"status"`
}

// Available reports whether the snapshot carries a live reading.
func (s InflationSnapshot) Available() bool { return s.Status == StatusSuccess }

// InflationConfig configures the inflation provider endpoints.
type InflationConfig struct {
	// WorldBankBaseURL serves India CPI (no key required).
	WorldBankBaseURL string
	// FREDBaseURL serves the US CPI series.
	FREDBaseURL string
	// FREDAPIKey authenticates against FRED.
	FREDAPIKey string
	// Timeout bounds each request.
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *InflationConfig) ApplyDefaults() {
	if c.WorldBankBaseURL == "" {
		c.WorldBankBaseURL = "https://api.worldbank.org"
	}
	if c.FREDBaseURL == "" {
		c.FREDBaseURL = "https://api.stlouisfed.org"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProviderTimeout
	}
}

// InflationProvider fetches CPI inflation per region.
type InflationProvider struct {
	config     InflationConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewInflationProvider creates an inflation provider.
func NewInflationProvider(cfg InflationConfig, logger *zap.Logger) *InflationProvider {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InflationProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Snapshot returns the region's current inflation reading, degrading to
// the fallback estimate on any failure.
func (p *InflationProvider) Snapshot(ctx context.Context, region budget.Region) InflationSnapshot {
	var (
		rate   float64
		source string
		err    error
	)
	if region == budget.RegionIndia {
		rate, source, err = p.fetchIndia(ctx)
	} else {
		rate, source, err = p.fetchUS(ctx)
	}
	if err != nil {
		p.logger.Warn("inflation fetch failed, serving fallback estimate",
			zap.String("region", string(region)),
			zap.Error(err),
		)
		fallback := fallbackInflationUS
		if region == budget.RegionIndia {
			fallback = fallbackInflationIndia
		}
		return InflationSnapshot{
			Region: region,
			Rate:   fallback,
			Source: "Fallback estimate",
			Status: StatusFallback,
		}
	}
	return InflationSnapshot{Region: region, Rate: rate, Source: source, Status: StatusSuccess}
}

// fetchIndia reads the most recent India CPI figure from the World Bank
// indicator API (FP.CPI.TOTL.ZG, free and keyless).
func (p *InflationProvider) fetchIndia(ctx context.Context) (float64, string, error) {
	endpoint := p.config.WorldBankBaseURL + "/v2/country/IN/indicator/FP.CPI.TOTL.ZG?format=json&mrv=1"

	body, err := p.get(ctx, endpoint, nil)
	if err != nil {
		return 0, "", err
	}

	// World Bank wraps results as [metadata, [observations]].
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, "", fmt.Errorf("decoding world bank response: %w", err)
	}
	if len(payload) < 2 {
		return 0, "", fmt.Errorf("world bank response missing observation block")
	}

	var observations []struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(payload[1], &observations); err != nil {
		return 0, "", fmt.Errorf("decoding world bank observations: %w", err)
	}
	if len(observations) == 0 || observations[0].Value == nil {
		return 0, "", fmt.Errorf("world bank returned no CPI value")
	}

	return round2(*observations[0].Value), "World Bank (India CPI)", nil
}

// fredObservationsResponse is the FRED series/observations payload.
type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// fetchUS computes year-over-year US inflation from the last thirteen
// monthly CPIAUCSL readings.
func (p *InflationProvider) fetchUS(ctx context.Context) (float64, string, error) {
	params := url.Values{}
	params.Set("series_id", "CPIAUCSL")
	params.Set("api_key", p.config.FREDAPIKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "desc")
	params.Set("limit", "13")
	endpoint := p.config.FREDBaseURL + "/fred/series/observations?" + params.Encode()

	body, err := p.get(ctx, endpoint, nil)
	if err != nil {
		return 0, "", err
	}

	var payload fredObservationsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, "", fmt.Errorf("decoding FRED response: %w", err)
	}
	if len(payload.Observations) < 13 {
		return 0, "", fmt.Errorf("FRED returned %d observations, need 13", len(payload.Observations))
	}

	var current, yearAgo float64
	if _, err := fmt.Sscanf(payload.Observations[0].Value, "%f", &current); err != nil {
		return 0, "", fmt.Errorf("parsing current CPI: %w", err)
	}
	if _, err := fmt.Sscanf(payload.Observations[12].Value, "%f", &yearAgo); err != nil {
		return 0, "", fmt.Errorf("parsing year-ago CPI: %w", err)
	}
	if yearAgo == 0 {
		return 0, "", fmt.Errorf("year-ago CPI reading is zero")
	}

	rate := round2((current - yearAgo) / yearAgo * 100)
	return rate, "US Federal Reserve (FRED)", nil
}

// get performs a GET request and returns the body for 200 responses.
func (p *InflationProvider) get(ctx context.Context, endpoint string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
