package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finsenselabs/finsense/internal/config"
	"github.com/finsenselabs/finsense/internal/knowledge"
	"github.com/finsenselabs/finsense/internal/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the financial-literacy knowledge index",
	Long: `Chunks and embeds the literacy corpus into the local vector index.
Uses the built-in seed corpus unless knowledge.corpus_path points at a
corpus YAML file.`,
	RunE: runIndex,
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	embedder, err := knowledge.NewOpenAIEmbedder(knowledge.EmbedderConfig{
		BaseURL: cfg.Embeddings.BaseURL,
		Model:   cfg.Embeddings.Model,
		APIKey:  cfg.Embeddings.APIKey.Value(),
	})
	if err != nil {
		return fmt.Errorf("building embedder: %w", err)
	}

	store, err := knowledge.NewChromemStore(knowledge.ChromemConfig{
		Path:     cfg.Knowledge.Path,
		Compress: cfg.Knowledge.Compress,
	}, embedder, logger.Named("knowledge"))
	if err != nil {
		return fmt.Errorf("opening knowledge store: %w", err)
	}

	entries, err := loadCorpus(cfg.Knowledge.CorpusPath)
	if err != nil {
		return err
	}

	chunks, err := knowledge.NewIndexer(store, logger.Named("indexer")).Index(cmd.Context(), entries)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d entries into %d chunks at %s\n", len(entries), chunks, cfg.Knowledge.Path)
	return nil
}

func loadCorpus(path string) ([]knowledge.CorpusEntry, error) {
	if path == "" {
		return knowledge.DefaultCorpus()
	}
	return knowledge.LoadCorpus(path)
}
