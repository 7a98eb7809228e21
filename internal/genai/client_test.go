package genai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend returns scripted results and counts attempts.
type stubBackend struct {
	name     string
	results  []stubResult
	attempts int
}

type stubResult struct {
	text string
	err  error
}

func (s *stubBackend) Complete(context.Context, string, int) (string, error) {
	i := s.attempts
	s.attempts++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	return r.text, r.err
}

func (s *stubBackend) Name() string { return s.name }

func quotaErr(provider string) error {
	return &QuotaError{Provider: provider, Status: 429, Message: "quota exceeded"}
}

// newTestClient wires a client with recorded, non-blocking sleeps.
func newTestClient(primary, secondary Backend) (*Client, *[]time.Duration) {
	c := NewClient(primary, secondary, ClientConfig{
		QuotaCooldown: 3 * time.Second,
		FullCooldown:  20 * time.Second,
	}, nil)
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestClient_PrimarySuccess(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{{text: "roast"}}}
	secondary := &stubBackend{name: "anthropic"}
	c, slept := newTestClient(primary, secondary)

	text, err := c.Generate(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, "roast", text)
	assert.Equal(t, 1, primary.attempts)
	assert.Equal(t, 0, secondary.attempts)
	assert.Empty(t, *slept)
}

func TestClient_QuotaFailsOverToSecondary(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{{err: quotaErr("gemini")}}}
	secondary := &stubBackend{name: "anthropic", results: []stubResult{{text: "backup roast"}}}
	c, slept := newTestClient(primary, secondary)

	text, err := c.Generate(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, "backup roast", text)
	assert.Equal(t, 1, primary.attempts)
	assert.Equal(t, 1, secondary.attempts)
	assert.Equal(t, []time.Duration{3 * time.Second}, *slept)
}

func TestClient_AllQuotaServesFallback(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{
		{err: quotaErr("gemini")},
		{err: quotaErr("gemini")},
	}}
	secondary := &stubBackend{name: "anthropic", results: []stubResult{{err: quotaErr("anthropic")}}}
	c, slept := newTestClient(primary, secondary)

	text, err := c.Generate(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, FallbackMessage, text)
	assert.Equal(t, 2, primary.attempts)
	assert.Equal(t, 1, secondary.attempts)
	assert.Equal(t, []time.Duration{3 * time.Second, 20 * time.Second}, *slept)
}

func TestClient_NonQuotaPrimaryErrorSurfaces(t *testing.T) {
	boom := errors.New("invalid request: prompt blocked")
	primary := &stubBackend{name: "gemini", results: []stubResult{{err: boom}}}
	secondary := &stubBackend{name: "anthropic", results: []stubResult{{text: "never"}}}
	c, slept := newTestClient(primary, secondary)

	_, err := c.Generate(context.Background(), "p", 512)
	require.Error(t, err)
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, primary.attempts)
	assert.Equal(t, 0, secondary.attempts)
	assert.Empty(t, *slept)
}

func TestClient_NonQuotaSecondaryStillRetriesPrimary(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{
		{err: quotaErr("gemini")},
		{text: "recovered"},
	}}
	secondary := &stubBackend{name: "anthropic", results: []stubResult{
		{err: errors.New("server error (500)")},
	}}
	c, _ := newTestClient(primary, secondary)

	text, err := c.Generate(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, primary.attempts)
	assert.Equal(t, 1, secondary.attempts)
}

func TestClient_NoSecondaryGoesStraightToFinalRetry(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{
		{err: quotaErr("gemini")},
		{text: "second wind"},
	}}
	c, slept := newTestClient(primary, nil)

	text, err := c.Generate(context.Background(), "p", 512)
	require.NoError(t, err)
	assert.Equal(t, "second wind", text)
	assert.Equal(t, []time.Duration{20 * time.Second}, *slept)
}

func TestClient_CancelledDuringCooldown(t *testing.T) {
	primary := &stubBackend{name: "gemini", results: []stubResult{{err: quotaErr("gemini")}}}
	secondary := &stubBackend{name: "anthropic", results: []stubResult{{text: "never"}}}
	c := NewClient(primary, secondary, ClientConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Generate(ctx, "p", 512)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, secondary.attempts)
}

func TestIsQuota(t *testing.T) {
	assert.True(t, IsQuota(&QuotaError{Provider: "gemini", Status: 429}))
	assert.True(t, IsQuota(errors.New("API error (429): too many requests")))
	assert.True(t, IsQuota(errors.New("Rate Limit reached for model")))
	assert.True(t, IsQuota(errors.New("RESOURCE_EXHAUSTED: daily cap hit")))
	assert.False(t, IsQuota(errors.New("invalid API key")))
	assert.False(t, IsQuota(nil))
}
