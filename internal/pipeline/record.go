// Package pipeline runs the five-stage analysis over a single shared
// record: spending analysis, live-data enrichment, knowledge
// retrieval, roast generation, and coach-plan generation.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/finsenselabs/finsense/internal/anomaly"
	"github.com/finsenselabs/finsense/internal/budget"
	"github.com/finsenselabs/finsense/internal/knowledge"
	"github.com/finsenselabs/finsense/internal/market"
)

// Step statuses.
const (
	StatusComplete = "complete"
	StatusSkipped  = "skipped"
	StatusError    = "error"
)

// Step is one entry in the run trace. Numbers are contiguous from 1 in
// execution order.
type Step struct {
	Number    int       `json:"step_number"`
	Name      string    `json:"step_name"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// Record is the analysis record every stage reads from and writes to.
// Stages receive it by value and return an updated copy; nothing
// mutates a record another stage already produced.
type Record struct {
	RunID     string       `json:"run_id"`
	Input     budget.Input `json:"input"`
	StartedAt time.Time    `json:"started_at"`

	// Stage 1: spending analysis.
	Anomalies []anomaly.Result `json:"anomalies"`
	Health    anomaly.Health   `json:"health_score"`

	// Stage 2: live data.
	Inflation   market.InflationSnapshot `json:"inflation"`
	Market      market.QuoteSnapshot     `json:"market_snapshot"`
	News        market.NewsSnapshot      `json:"top_news"`
	Tax         market.TaxEstimate       `json:"tax_estimate"`
	Projections market.ProjectionSet     `json:"projections"`

	// Stage 3: knowledge retrieval.
	Knowledge []knowledge.Passage `json:"retrieved_knowledge"`

	// Stages 4–5: generation.
	Roast         string               `json:"roast"`
	CoachPlan     string               `json:"coach_plan"`
	RebuiltBudget budget.RebuiltBudget `json:"rebuilt_budget"`

	Trace []Step `json:"steps"`
	Err   string `json:"error,omitempty"`
}

// newRecord builds the initial record for a validated input.
func newRecord(input budget.Input, now time.Time) Record {
	return Record{
		RunID:     uuid.NewString(),
		Input:     input,
		StartedAt: now,
	}
}

// appendStep adds a trace entry with the next contiguous number.
func appendStep(rec Record, name, detail, status string, now time.Time) Record {
	rec.Trace = append(rec.Trace, Step{
		Number:    len(rec.Trace) + 1,
		Name:      name,
		Detail:    detail,
		Timestamp: now,
		Status:    status,
	})
	return rec
}
