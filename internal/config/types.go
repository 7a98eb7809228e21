package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration for human-readable config values ("10s", "5m").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns the redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns the redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// MarshalText implements encoding.TextMarshaler. Always returns the redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(""), nil
	}
	return []byte("[REDACTED]"), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Accepts raw secret values.
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Knowledge  KnowledgeConfig  `koanf:"knowledge"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Generation GenerationConfig `koanf:"generation"`
	Market     MarketConfig     `koanf:"market"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// KnowledgeConfig configures the embedded vector index.
type KnowledgeConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`

	// CorpusPath optionally points at a corpus YAML; empty uses the
	// built-in seed corpus.
	CorpusPath string `koanf:"corpus_path"`
}

// EmbeddingsConfig configures the OpenAI-compatible embedding endpoint.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// ProviderConfig configures one generation backend.
type ProviderConfig struct {
	Model   string   `koanf:"model"`
	APIKey  Secret   `koanf:"api_key"`
	BaseURL string   `koanf:"base_url"`
	Timeout Duration `koanf:"timeout"`
}

// GenerationConfig configures the failover generation client.
type GenerationConfig struct {
	Gemini    ProviderConfig `koanf:"gemini"`
	Anthropic ProviderConfig `koanf:"anthropic"`

	QuotaCooldown Duration `koanf:"quota_cooldown"`
	FullCooldown  Duration `koanf:"full_cooldown"`

	RoastMaxTokens int `koanf:"roast_max_tokens"`
	CoachMaxTokens int `koanf:"coach_max_tokens"`
}

// MarketConfig configures the live-data providers.
type MarketConfig struct {
	WorldBankBaseURL string   `koanf:"worldbank_base_url"`
	FREDBaseURL      string   `koanf:"fred_base_url"`
	FREDAPIKey       Secret   `koanf:"fred_api_key"`
	QuotesBaseURL    string   `koanf:"quotes_base_url"`
	NewsBaseURL      string   `koanf:"news_base_url"`
	NewsAPIKey       Secret   `koanf:"news_api_key"`
	MaxArticles      int      `koanf:"max_articles"`
	Timeout          Duration `koanf:"timeout"`
}

// Validate checks the constraints defaults can't repair.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if !c.Generation.Gemini.APIKey.IsSet() {
		return fmt.Errorf("generation.gemini.api_key is required")
	}
	return nil
}
