package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsenselabs/finsense/internal/config"
	"github.com/finsenselabs/finsense/internal/genai"
	"github.com/finsenselabs/finsense/internal/knowledge"
	"github.com/finsenselabs/finsense/internal/logging"
	"github.com/finsenselabs/finsense/internal/market"
	"github.com/finsenselabs/finsense/internal/pipeline"
	"github.com/finsenselabs/finsense/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analysis HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	}, runner, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := srv.Start(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// buildRunner wires the pipeline from config: embedder, knowledge
// store, live-data providers and the failover generation client.
func buildRunner(cfg *config.Config, logger *zap.Logger) (*pipeline.Runner, error) {
	embedder, err := knowledge.NewOpenAIEmbedder(knowledge.EmbedderConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return nil, fmt.Errorf("building embedder: %w", err)
	}

	store, err := knowledge.NewChromemStore(knowledge.ChromemConfig{
		Path:     cfg.Knowledge.Path,
		Compress: cfg.Knowledge.Compress,
	}, embedder, logger.Named("knowledge"))
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}

	marketTimeout := cfg.Market.Timeout.Duration()
	inflation := market.NewInflationProvider(market.InflationConfig{
		WorldBankBaseURL: cfg.Market.WorldBankBaseURL,
		FREDBaseURL:      cfg.Market.FREDBaseURL,
		FREDAPIKey:       cfg.Market.FREDAPIKey.Value(),
		Timeout:          marketTimeout,
	}, logger.Named("market"))
	quotes := market.NewQuoteProvider(market.QuoteConfig{
		BaseURL: cfg.Market.QuotesBaseURL,
		Timeout: marketTimeout,
	}, logger.Named("market"))
	news := market.NewNewsProvider(market.NewsConfig{
		BaseURL:     cfg.Market.NewsBaseURL,
		APIKey:      cfg.Market.NewsAPIKey.Value(),
		MaxArticles: cfg.Market.MaxArticles,
		Timeout:     marketTimeout,
	}, logger.Named("market"))

	primary, err := genai.NewGeminiBackend(genai.BackendConfig{
		Model:   cfg.Generation.Gemini.Model,
		APIKey:  cfg.Generation.Gemini.APIKey.Value(),
		BaseURL: cfg.Generation.Gemini.BaseURL,
		Timeout: cfg.Generation.Gemini.Timeout.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("building gemini backend: %w", err)
	}

	// The secondary provider is optional; without it the client goes
	// straight to the long cooldown and final retry.
	var secondary genai.Backend
	if cfg.Generation.Anthropic.APIKey.IsSet() {
		anthropic, err := genai.NewAnthropicBackend(genai.BackendConfig{
			Model:   cfg.Generation.Anthropic.Model,
			APIKey:  cfg.Generation.Anthropic.APIKey.Value(),
			BaseURL: cfg.Generation.Anthropic.BaseURL,
			Timeout: cfg.Generation.Anthropic.Timeout.Duration(),
		})
		if err != nil {
			return nil, fmt.Errorf("building anthropic backend: %w", err)
		}
		secondary = anthropic
	}

	client := genai.NewClient(primary, secondary, genai.ClientConfig{
		QuotaCooldown: cfg.Generation.QuotaCooldown.Duration(),
		FullCooldown:  cfg.Generation.FullCooldown.Duration(),
	}, logger.Named("genai"))

	return pipeline.NewRunner(inflation, quotes, news, store, client, pipeline.RunnerConfig{
		RoastMaxTokens: cfg.Generation.RoastMaxTokens,
		CoachMaxTokens: cfg.Generation.CoachMaxTokens,
	}, logger.Named("pipeline")), nil
}
