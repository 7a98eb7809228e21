package genai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGemini(t *testing.T, baseURL string) *GeminiBackend {
	t.Helper()
	g, err := NewGeminiBackend(BackendConfig{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return g
}

func TestGeminiBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-flash:generateContent")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"yo, your dining budget is on fire"}],"role":"model"}}]}`))
	}))
	defer srv.Close()

	text, err := newGemini(t, srv.URL).Complete(context.Background(), "roast me", 512)
	require.NoError(t, err)
	assert.Equal(t, "yo, your dining budget is on fire", text)
}

func TestGeminiBackend_QuotaOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := newGemini(t, srv.URL).Complete(context.Background(), "p", 512)
	require.Error(t, err)
	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "gemini", qe.Provider)
	assert.Equal(t, http.StatusTooManyRequests, qe.Status)
	assert.True(t, IsQuota(err))
}

func TestGeminiBackend_QuotaOnResourceExhausted(t *testing.T) {
	// Some quota failures arrive as 403 with a RESOURCE_EXHAUSTED status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"Daily quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := newGemini(t, srv.URL).Complete(context.Background(), "p", 512)
	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
}

func TestGeminiBackend_PlainErrorOnBadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"Invalid argument","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := newGemini(t, srv.URL).Complete(context.Background(), "p", 512)
	require.Error(t, err)
	var qe *QuotaError
	assert.False(t, errors.As(err, &qe))
	assert.Contains(t, err.Error(), "Invalid argument")
}

func TestAnthropicBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Write([]byte(`{"content":[{"type":"text","text":"steady plan, solid savings"}]}`))
	}))
	defer srv.Close()

	a, err := NewAnthropicBackend(BackendConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	text, err := a.Complete(context.Background(), "coach me", 512)
	require.NoError(t, err)
	assert.Equal(t, "steady plan, solid savings", text)
}

func TestAnthropicBackend_QuotaOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`))
	}))
	defer srv.Close()

	a, err := NewAnthropicBackend(BackendConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), "p", 512)
	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "anthropic", qe.Provider)
}

func TestBackendConfigValidation(t *testing.T) {
	_, err := NewGeminiBackend(BackendConfig{})
	assert.Error(t, err)
	_, err = NewAnthropicBackend(BackendConfig{})
	assert.Error(t, err)
}
