package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/anomaly"
	"github.com/finsenselabs/finsense/internal/budget"
	"github.com/finsenselabs/finsense/internal/knowledge"
	"github.com/finsenselabs/finsense/internal/market"
)

var pipelineTracer = otel.Tracer("finsense/pipeline")

var (
	stageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsense_pipeline_stage_total",
		Help: "Pipeline stage executions by stage and status.",
	}, []string{"stage", "status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finsense_pipeline_run_duration_seconds",
		Help:    "Wall time of a full pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)

// Default generation token budgets and retrieval depth.
const (
	defaultRoastMaxTokens = 512
	defaultCoachMaxTokens = 1024
	defaultPassages       = 4
)

// InflationSource yields the region's inflation snapshot.
type InflationSource interface {
	Snapshot(ctx context.Context, region budget.Region) market.InflationSnapshot
}

// QuoteSource yields the region's index and ETF quote snapshot.
type QuoteSource interface {
	Snapshot(ctx context.Context, region budget.Region) market.QuoteSnapshot
}

// NewsSource yields the region's financial headlines.
type NewsSource interface {
	Headlines(ctx context.Context, region budget.Region) market.NewsSnapshot
}

// Generator produces text for a prompt within a token budget.
// *genai.Client satisfies this.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// RunnerConfig tunes a pipeline runner.
type RunnerConfig struct {
	RoastMaxTokens int
	CoachMaxTokens int

	// Passages is how many knowledge chunks stage 3 retrieves.
	Passages int
}

func (c *RunnerConfig) applyDefaults() {
	if c.RoastMaxTokens <= 0 {
		c.RoastMaxTokens = defaultRoastMaxTokens
	}
	if c.CoachMaxTokens <= 0 {
		c.CoachMaxTokens = defaultCoachMaxTokens
	}
	if c.Passages <= 0 {
		c.Passages = defaultPassages
	}
}

// Runner executes the five analysis stages in fixed order over one
// record.
type Runner struct {
	inflation InflationSource
	quotes    QuoteSource
	news      NewsSource
	store     knowledge.Store
	generator Generator
	cfg       RunnerConfig
	logger    *zap.Logger

	// now is injectable for deterministic trace timestamps in tests.
	now func() time.Time

	// OnStep, when set, is invoked for every trace entry as it is
	// appended. Used to stream progress to clients.
	OnStep func(Step)
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	inflation InflationSource,
	quotes QuoteSource,
	news NewsSource,
	store knowledge.Store,
	generator Generator,
	cfg RunnerConfig,
	logger *zap.Logger,
) *Runner {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		inflation: inflation,
		quotes:    quotes,
		news:      news,
		store:     store,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type stage struct {
	name string
	run  func(context.Context, Record) (Record, error)
}

// Run executes the full pipeline for a validated-or-not input and
// always returns a record. A stage-1 failure (or a propagated failure
// from a later stage) sets record.Err and stops the run; the partial
// record keeps whatever the earlier stages produced.
func (r *Runner) Run(ctx context.Context, input budget.Input) Record {
	ctx, span := pipelineTracer.Start(ctx, "Runner.Run")
	defer span.End()

	start := r.now()
	defer func() { runDuration.Observe(time.Since(start).Seconds()) }()

	rec := newRecord(input, start)
	span.SetAttributes(
		attribute.String("run_id", rec.RunID),
		attribute.String("region", string(input.Region)),
	)

	stages := []stage{
		{"analyze_spending", r.analyzeSpending},
		{"fetch_live_data", r.fetchLiveData},
		{"retrieve_knowledge", r.retrieveKnowledge},
		{"generate_roast", r.generateRoast},
		{"generate_coach_plan", r.generateCoachPlan},
	}

	for _, s := range stages {
		var err error
		rec, err = r.runStage(ctx, s, rec)
		if err != nil {
			rec.Err = err.Error()
			span.SetStatus(codes.Error, err.Error())
			r.logger.Error("pipeline run aborted",
				zap.String("run_id", rec.RunID),
				zap.String("stage", s.name),
				zap.Error(err))
			return rec
		}
	}

	span.SetStatus(codes.Ok, "success")
	r.logger.Info("pipeline run complete",
		zap.String("run_id", rec.RunID),
		zap.Float64("health_score", rec.Health.Score),
		zap.Int("trace_steps", len(rec.Trace)))
	return rec
}

// runStage wraps one stage with its span, metrics and step streaming.
func (r *Runner) runStage(ctx context.Context, s stage, rec Record) (Record, error) {
	ctx, span := pipelineTracer.Start(ctx, "pipeline."+s.name)
	defer span.End()

	before := len(rec.Trace)
	out, err := s.run(ctx, rec)
	if err != nil {
		out = appendStep(out, s.name, err.Error(), StatusError, r.now())
		stageRuns.WithLabelValues(s.name, StatusError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		stageRuns.WithLabelValues(s.name, StatusComplete).Inc()
	}

	if r.OnStep != nil {
		for _, step := range out.Trace[before:] {
			r.OnStep(step)
		}
	}
	return out, err
}

// analyzeSpending runs anomaly detection and the health score. This is
// the only stage whose failure is fatal: without it no meaningful
// record exists.
func (r *Runner) analyzeSpending(_ context.Context, rec Record) (Record, error) {
	if err := rec.Input.Validate(); err != nil {
		return rec, fmt.Errorf("invalid input: %w", err)
	}

	rec.Anomalies = anomaly.Detect(rec.Input.Spending, rec.Input.MonthlyIncome, rec.Input.Region)
	rec.Health = anomaly.Score(rec.Input.Spending, rec.Input.MonthlyIncome, rec.Anomalies, rec.Input.Region)

	found := len(anomalousOnly(rec.Anomalies))
	rec = appendStep(rec,
		"Analyzing spending patterns",
		fmt.Sprintf("Found %d anomalies in your budget", found),
		StatusComplete, r.now())
	return rec, nil
}

// fetchLiveData enriches the record with provider snapshots, the tax
// estimate and investment projections. Providers degrade internally to
// fallback snapshots, so this stage never errors.
func (r *Runner) fetchLiveData(ctx context.Context, rec Record) (Record, error) {
	region := rec.Input.Region
	annualIncome := rec.Input.MonthlyIncome * 12

	rec.Inflation = r.inflation.Snapshot(ctx, region)
	rec.Market = r.quotes.Snapshot(ctx, region)
	rec.News = r.news.Headlines(ctx, region)
	rec.Tax = market.EstimateTax(region, annualIncome)

	// Surplus available for investing: income minus everything already
	// spent, where existing savings/investments don't count as spent.
	spent := rec.Input.Spending.TotalExcluding(budget.CategorySavings, budget.CategoryInvestments)
	investable := rec.Input.MonthlyIncome - spent
	if investable < 0 {
		investable = 0
	}
	rec.Projections = market.Projections(investable, region)

	rec = appendStep(rec,
		"Fetching live market and economic data",
		fmt.Sprintf("Inflation: %s%% | Fetched market prices + %d news articles",
			inflationRate(rec), len(rec.News.Articles)),
		StatusComplete, r.now())
	return rec, nil
}

// retrieveKnowledge queries the literacy index for passages matching
// the worst anomalies. A store that is unavailable (index not built,
// embedder down) degrades to an empty list and a skipped trace entry;
// any other failure propagates.
func (r *Runner) retrieveKnowledge(ctx context.Context, rec Record) (Record, error) {
	query := knowledgeQuery(rec)

	passages, err := r.store.Query(ctx, query, string(rec.Input.Region), r.cfg.Passages)
	if err != nil {
		if knowledge.IsStoreUnavailable(err) {
			r.logger.Warn("knowledge store unavailable, continuing without passages",
				zap.String("run_id", rec.RunID),
				zap.Error(err))
			rec.Knowledge = []knowledge.Passage{}
			rec = appendStep(rec,
				"Knowledge retrieval",
				"Skipped — knowledge base not built yet",
				StatusSkipped, r.now())
			return rec, nil
		}
		return rec, fmt.Errorf("retrieving knowledge: %w", err)
	}

	rec.Knowledge = passages
	rec = appendStep(rec,
		"Retrieving financial literacy knowledge",
		fmt.Sprintf("Found %d relevant passages from trusted sources", len(passages)),
		StatusComplete, r.now())
	return rec, nil
}

// knowledgeQuery targets the three worst anomalies, falling back to a
// generic regional query when the budget looks clean.
func knowledgeQuery(rec Record) string {
	anomalous := anomalousOnly(rec.Anomalies)
	if len(anomalous) == 0 {
		return fmt.Sprintf("general budgeting and investing advice for %s", rec.Input.Region)
	}
	sort.SliceStable(anomalous, func(i, j int) bool {
		return anomalous[i].AnomalyScore > anomalous[j].AnomalyScore
	})
	if len(anomalous) > 3 {
		anomalous = anomalous[:3]
	}
	categories := make([]string, len(anomalous))
	for i, a := range anomalous {
		categories[i] = a.Category
	}
	return "budgeting advice for overspending on " + strings.Join(categories, ", ")
}

// generateRoast asks the generation client for the roast. Errors
// propagate: the client already absorbed every recoverable condition.
func (r *Runner) generateRoast(ctx context.Context, rec Record) (Record, error) {
	text, err := r.generator.Generate(ctx, roastPrompt(rec), r.cfg.RoastMaxTokens)
	if err != nil {
		return rec, fmt.Errorf("generating roast: %w", err)
	}
	rec.Roast = text
	rec = appendStep(rec,
		"Generating your financial roast",
		"Roast generated successfully",
		StatusComplete, r.now())
	return rec, nil
}

// generateCoachPlan asks for the coach plan and rebuilds the budget by
// the region's framework. Terminal stage.
func (r *Runner) generateCoachPlan(ctx context.Context, rec Record) (Record, error) {
	text, err := r.generator.Generate(ctx, coachPrompt(rec), r.cfg.CoachMaxTokens)
	if err != nil {
		return rec, fmt.Errorf("generating coach plan: %w", err)
	}
	rec.CoachPlan = text
	rec.RebuiltBudget = budget.Rebuild(rec.Input.MonthlyIncome, rec.Input.Region)
	rec = appendStep(rec,
		"Building your personalized coach plan",
		"Coach plan ready",
		StatusComplete, r.now())
	return rec, nil
}
