package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Region ticker sets. Indices carry a leading caret; the rest are ETFs.
var indiaTickers = map[string]string{
	"Nifty 50":   "^NSEI",
	"Sensex":     "^BSESN",
	"Nifty Bank": "^NSEBANK",
}

var usTickers = map[string]string{
	"S&P 500":            "^GSPC",
	"Nasdaq":             "^IXIC",
	"VOO (S&P ETF)":      "VOO",
	"QQQ (Nasdaq ETF)":   "QQQ",
	"VTI (Total Market)": "VTI",
}

// Quote is one priced instrument.
type Quote struct {
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

// QuoteSnapshot is the live market picture for a region.
type QuoteSnapshot struct {
	Region  budget.Region    `json:"region"`
	Indices map[string]Quote `json:"indices"`
	ETFs    map[string]Quote `json:"etfs,omitempty"`
	Status  string           `json:"status"`
}

// QuoteConfig configures the quote provider.
type QuoteConfig struct {
	// BaseURL is a Yahoo-compatible quote endpoint.
	BaseURL string
	Timeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *QuoteConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProviderTimeout
	}
}

// QuoteProvider fetches live index and ETF prices.
type QuoteProvider struct {
	config     QuoteConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewQuoteProvider creates a quote provider.
func NewQuoteProvider(cfg QuoteConfig, logger *zap.Logger) *QuoteProvider {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// quoteResponse is the v7 finance quote payload.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
			Currency           string  `json:"currency"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Snapshot fetches all region tickers in one batch request. A failed or
// partial fetch degrades to an empty snapshot with Status "fallback";
// individual missing tickers are simply absent.
func (p *QuoteProvider) Snapshot(ctx context.Context, region budget.Region) QuoteSnapshot {
	tickers := usTickers
	currency := "USD"
	if region == budget.RegionIndia {
		tickers = indiaTickers
		currency = "INR"
	}

	snapshot := QuoteSnapshot{
		Region:  region,
		Indices: map[string]Quote{},
		ETFs:    map[string]Quote{},
		Status:  StatusSuccess,
	}

	symbols := make([]string, 0, len(tickers))
	names := make(map[string]string, len(tickers))
	for name, symbol := range tickers {
		symbols = append(symbols, symbol)
		names[symbol] = name
	}

	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	endpoint := p.config.BaseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return p.fallback(region, err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.fallback(region, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return p.fallback(region, err)
	}
	if resp.StatusCode != http.StatusOK {
		return p.fallback(region, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var payload quoteResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return p.fallback(region, fmt.Errorf("decoding quote response: %w", err))
	}

	for _, result := range payload.QuoteResponse.Result {
		name, ok := names[result.Symbol]
		if !ok || result.RegularMarketPrice == 0 {
			continue
		}
		q := Quote{Price: math.Round(result.RegularMarketPrice*100) / 100, Currency: currency}
		if strings.HasPrefix(result.Symbol, "^") {
			snapshot.Indices[name] = q
		} else {
			snapshot.ETFs[name] = q
		}
	}
	if len(snapshot.Indices) == 0 && len(snapshot.ETFs) == 0 {
		return p.fallback(region, fmt.Errorf("quote endpoint returned no usable prices"))
	}
	return snapshot
}

func (p *QuoteProvider) fallback(region budget.Region, err error) QuoteSnapshot {
	p.logger.Warn("market quote fetch failed, serving empty snapshot",
		zap.String("region", string(region)),
		zap.Error(err),
	)
	return QuoteSnapshot{
		Region:  region,
		Indices: map[string]Quote{},
		ETFs:    map[string]Quote{},
		Status:  StatusFallback,
	}
}
