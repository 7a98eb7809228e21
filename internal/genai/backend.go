// Package genai provides the resilient text-generation client: a
// primary and secondary LLM backend with quota-aware failover and a
// static fallback message once every recovery path is exhausted.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Backend is a single LLM provider capable of text completion.
type Backend interface {
	// Complete generates text for the prompt within the token budget.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}

// QuotaError marks a rate-limit or quota-exhaustion failure. The
// failover chain treats these as recoverable; everything else from the
// primary backend surfaces to the caller.
type QuotaError struct {
	Provider string
	Status   int
	Message  string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted (status %d): %s", e.Provider, e.Status, e.Message)
}

// quotaMarkers are matched case-insensitively against flattened error
// text when the typed check fails (errors that crossed an API boundary
// and lost their type).
var quotaMarkers = []string{"429", "quota", "rate limit", "resource_exhausted"}

// IsQuota reports whether err represents a rate/quota condition.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	var qe *QuotaError
	if errors.As(err, &qe) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
