package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/budget"
)

// Region query strings for the news search.
const (
	indiaNewsQuery = `"mutual fund" OR "stock market" OR "RBI" OR "SEBI" OR "Nifty" OR "SIP" OR "personal finance India"`
	usNewsQuery    = `"Federal Reserve" OR "S&P 500" OR "stock market" OR "inflation" OR "401k" OR "personal finance" OR "investing"`
)

// sportsKeywords marks articles the keyword search drags in that are
// clearly not financial.
var sportsKeywords = []string{
	"olympics", "basketball", "football", "soccer",
	"hockey", "baseball", "nba", "nfl", "mlb", "nhl",
}

// Article is one cleaned financial headline.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

// NewsSnapshot is the headline set for a region.
type NewsSnapshot struct {
	Region   budget.Region `json:"region"`
	Articles []Article     `json:"articles"`
	Status   string        `json:"status"`
}

// NewsConfig configures the news provider.
type NewsConfig struct {
	// BaseURL is a NewsAPI-compatible endpoint.
	BaseURL string
	APIKey  string
	// MaxArticles caps the cleaned result set. Default: 5.
	MaxArticles int
	Timeout     time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *NewsConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://newsapi.org"
	}
	if c.MaxArticles <= 0 {
		c.MaxArticles = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProviderTimeout
	}
}

// NewsProvider fetches recent financial headlines.
type NewsProvider struct {
	config     NewsConfig
	httpClient *http.Client
	logger     *zap.Logger
	// now is injectable for tests.
	now func() time.Time
}

// NewNewsProvider creates a news provider.
func NewNewsProvider(cfg NewsConfig, logger *zap.Logger) *NewsProvider {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NewsProvider{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		now:        time.Now,
	}
}

// newsAPIResponse is the /v2/everything payload.
type newsAPIResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Headlines fetches up to MaxArticles cleaned headlines from the last
// seven days. Any failure degrades to an empty article list.
func (p *NewsProvider) Headlines(ctx context.Context, region budget.Region) NewsSnapshot {
	query := usNewsQuery
	if region == budget.RegionIndia {
		query = indiaNewsQuery
	}

	to := p.now()
	from := to.AddDate(0, 0, -7)

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "relevancy")
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("pageSize", "20")
	endpoint := p.config.BaseURL + "/v2/everything?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return p.fallback(region, err)
	}
	req.Header.Set("X-Api-Key", p.config.APIKey)

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
		return p.fallback(region, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return p.fallback(region, fmt.Errorf("decoding news response: %w", err))
	}

	articles := make([]Article, 0, p.config.MaxArticles)
	for _, a := range payload.Articles {
		if !keepArticle(a.Title, a.Description) {
			continue
		}
		articles = append(articles, Article{
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
		if len(articles) >= p.config.MaxArticles {
			break
		}
	}

	return NewsSnapshot{Region: region, Articles: articles, Status: StatusSuccess}
}

// keepArticle drops removed, contentless and non-financial articles.
func keepArticle(title, description string) bool {
	if title == "" || description == "" || title == "[Removed]" {
		return false
	}
	lower := strings.ToLower(title)
	for _, kw := range sportsKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

func (p *NewsProvider) fallback(region budget.Region, err error) NewsSnapshot {
	p.logger.Warn("news fetch failed, serving empty headline set",
		zap.String("region", string(region)),
		zap.Error(err),
	)
	return NewsSnapshot{Region: region, Articles: []Article{}, Status: StatusFallback}
}
