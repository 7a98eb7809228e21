// Package config loads the service configuration from a YAML file
// overlaid with environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix scopes which environment variables the loader reads.
const envPrefix = "FINSENSE_"

// Load reads configuration with the following precedence (highest first):
//
//  1. Environment variables (FINSENSE_SERVER_PORT, FINSENSE_GENERATION_GEMINI_API_KEY, ...)
//  2. The YAML config file at configPath, if it exists
//  3. Hardcoded defaults
//
// Environment variables map to config keys by stripping the prefix,
// lowercasing, and splitting section from field on the first
// underscore: FINSENSE_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout.
// Nested provider fields use double underscores:
// FINSENSE_GENERATION__GEMINI__API_KEY -> generation.gemini.api_key.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFile reads the YAML file through an already-open descriptor so
// the permission and size checks can't race a swap of the path.
func loadFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateFileProperties(info); err != nil {
		return fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// validateFileProperties rejects world-readable or oversized config
// files (they hold API keys).
func validateFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0o600 && perm != 0o400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// envTransform maps FINSENSE_SECTION_FIELD_NAME to section.field_name.
// Double underscores mark nesting boundaries below the section.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	if strings.Contains(lower, "__") {
		return strings.ReplaceAll(lower, "__", ".")
	}

	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyDefaults fills in every field the file and environment left unset.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Knowledge.Path == "" {
		cfg.Knowledge.Path = "data/knowledge"
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "text-embedding-3-small"
	}

	if cfg.Generation.QuotaCooldown == 0 {
		cfg.Generation.QuotaCooldown = Duration(3 * time.Second)
	}
	if cfg.Generation.FullCooldown == 0 {
		cfg.Generation.FullCooldown = Duration(20 * time.Second)
	}
	if cfg.Generation.RoastMaxTokens == 0 {
		cfg.Generation.RoastMaxTokens = 512
	}
	if cfg.Generation.CoachMaxTokens == 0 {
		cfg.Generation.CoachMaxTokens = 1024
	}

	if cfg.Market.MaxArticles == 0 {
		cfg.Market.MaxArticles = 5
	}
	if cfg.Market.Timeout == 0 {
		cfg.Market.Timeout = Duration(10 * time.Second)
	}
}
