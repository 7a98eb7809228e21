package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsenselabs/finsense/internal/budget"
	"github.com/finsenselabs/finsense/internal/config"
	"github.com/finsenselabs/finsense/internal/logging"
	"github.com/finsenselabs/finsense/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <input.json>",
	Short: "Run a one-shot analysis from a JSON input file",
	Long: `Runs the full pipeline once and prints the analysis record as JSON.

The input file mirrors the API payload:

  {
    "region": "india",
    "monthly_income": 50000,
    "language": "english",
    "spending": {"rent": 15000, "dining_out": 8000, "savings": 2000}
  }`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	var payload struct {
		Region        string             `json:"region"`
		MonthlyIncome float64            `json:"monthly_income"`
		Spending      map[string]float64 `json:"spending"`
		Language      string             `json:"language"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}

	input := budget.Input{
		Region:        budget.ParseRegion(payload.Region),
		MonthlyIncome: payload.MonthlyIncome,
		Spending:      budget.Spending(payload.Spending),
		Language:      budget.ParseLanguage(payload.Language),
	}
	if err := input.Validate(); err != nil {
		return err
	}

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	// Stream the trace to stderr so the JSON on stdout stays clean.
	runner.OnStep = func(s pipeline.Step) {
		fmt.Fprintf(os.Stderr, "[%d] %s — %s\n", s.Number, s.Name, s.Detail)
	}

	rec := runner.Run(cmd.Context(), input)

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	fmt.Println(string(out))

	if rec.Err != "" {
		return fmt.Errorf("analysis aborted: %s", rec.Err)
	}
	return nil
}
