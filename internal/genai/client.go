package genai

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// FallbackMessage is served when every provider in the chain is
// exhausted. The caller still gets a populated record; only the
// generated commentary degrades.
const FallbackMessage = "Looks like my AI coaches are swamped right now. " +
	"Your numbers are fully crunched below — give me a few minutes and " +
	"ask again for the personalized commentary."

// Default cooldowns between failover attempts. The short pause covers
// burst rate limits; the long pause gives per-minute quotas a chance
// to reset before the final primary retry.
const (
	defaultQuotaCooldown = 3 * time.Second
	defaultFullCooldown  = 20 * time.Second
)

var (
	generationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsense_generation_attempts_total",
		Help: "Generation attempts per provider and outcome.",
	}, []string{"provider", "outcome"})

	generationFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finsense_generation_fallbacks_total",
		Help: "Requests that exhausted all providers and served the static fallback.",
	})
)

// ClientConfig tunes the failover chain.
type ClientConfig struct {
	// QuotaCooldown is the pause after a primary quota failure before
	// trying the secondary provider.
	QuotaCooldown time.Duration

	// FullCooldown is the pause after the secondary also fails before
	// the final primary retry.
	FullCooldown time.Duration
}

// Client routes generation requests through a primary and secondary
// backend with quota-aware failover.
//
// Attempt chain: primary, then (on quota failure) secondary after a
// short cooldown, then primary once more after a long cooldown, then
// FallbackMessage. A non-quota failure from the primary's first
// attempt is returned to the caller untouched; once the chain has
// committed to recovery it never raises, degrading to the fallback
// instead.
type Client struct {
	primary   Backend
	secondary Backend
	cfg       ClientConfig
	logger    *zap.Logger

	// sleep is injectable for tests; it must honor ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a failover client over the two backends. The
// secondary may be nil, in which case quota failures go straight to
// the long cooldown and final retry.
func NewClient(primary, secondary Backend, cfg ClientConfig, logger *zap.Logger) *Client {
	if cfg.QuotaCooldown <= 0 {
		cfg.QuotaCooldown = defaultQuotaCooldown
	}
	if cfg.FullCooldown <= 0 {
		cfg.FullCooldown = defaultFullCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Generate produces text for the prompt, failing over on quota errors.
// It returns an error only when the very first primary attempt fails
// with a non-quota condition; every other path yields text.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	text, err := c.primary.Complete(ctx, prompt, maxTokens)
	if err == nil {
		generationAttempts.WithLabelValues(c.primary.Name(), "success").Inc()
		return text, nil
	}
	if !IsQuota(err) {
		generationAttempts.WithLabelValues(c.primary.Name(), "error").Inc()
		return "", err
	}
	generationAttempts.WithLabelValues(c.primary.Name(), "quota").Inc()
	c.logger.Warn("primary provider over quota, failing over",
		zap.String("provider", c.primary.Name()),
		zap.Error(err))

	if c.secondary != nil {
		if err := c.sleep(ctx, c.cfg.QuotaCooldown); err != nil {
			return "", err
		}
		text, err = c.secondary.Complete(ctx, prompt, maxTokens)
		if err == nil {
			generationAttempts.WithLabelValues(c.secondary.Name(), "success").Inc()
			return text, nil
		}
		outcome := "error"
		if IsQuota(err) {
			outcome = "quota"
		}
		generationAttempts.WithLabelValues(c.secondary.Name(), outcome).Inc()
		c.logger.Warn("secondary provider failed",
			zap.String("provider", c.secondary.Name()),
			zap.Error(err))
	}

	if err := c.sleep(ctx, c.cfg.FullCooldown); err != nil {
		return "", err
	}
	text, err = c.primary.Complete(ctx, prompt, maxTokens)
	if err == nil {
		generationAttempts.WithLabelValues(c.primary.Name(), "success").Inc()
		return text, nil
	}
	generationAttempts.WithLabelValues(c.primary.Name(), "exhausted").Inc()
	generationFallbacks.Inc()
	c.logger.Error("all providers exhausted, serving fallback message",
		zap.Error(err))
	return FallbackMessage, nil
}

// sleepCtx pauses for d, returning early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
