package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultGeminiModel   = "gemini-1.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

	defaultBackendTimeout = 60 * time.Second
	defaultRateLimit      = 2.0 // requests per second
	defaultBurst          = 5
)

// BackendConfig configures a single provider backend.
type BackendConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// GeminiBackend talks to Google's Generative Language REST API.
type GeminiBackend struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGeminiBackend builds the primary generation backend.
func NewGeminiBackend(cfg BackendConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &GeminiBackend{
		model:      model,
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete generates text via the generateContent endpoint. HTTP 429
// and RESOURCE_EXHAUSTED responses come back as *QuotaError so the
// client can fail over; other failures return plain errors.
func (g *GeminiBackend) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	req := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: maxTokens,
			Temperature:     0.9, // roasts and coaching want some flair
		},
	}
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &QuotaError{Provider: g.Name(), Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if resp.StatusCode != http.StatusOK {
		var errResp geminiError
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Status == "RESOURCE_EXHAUSTED" {
			return "", &QuotaError{Provider: g.Name(), Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, errorMessage(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// errorMessage extracts a provider error message when the body is
// structured, falling back to the raw body.
func errorMessage(body []byte) string {
	var errResp geminiError
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return string(body)
}

var _ Backend = (*GeminiBackend)(nil)
