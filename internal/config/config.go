// Package config provides configuration types, defaults, and persistence for tokenwatt.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/tokenwatt/internal/capture"
	"github.com/zjrosen/tokenwatt/internal/delta"
	"github.com/zjrosen/tokenwatt/internal/flags"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/paths"
	"github.com/zjrosen/tokenwatt/internal/tokenizer"
	"github.com/zjrosen/tokenwatt/internal/tracing"
	"github.com/zjrosen/tokenwatt/internal/usage"
)

// Config holds all tokenwatt configuration.
type Config struct {
	// Enabled is the persisted logging toggle.
	Enabled   bool            `mapstructure:"enabled"`
	Capture   CaptureConfig   `mapstructure:"capture"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Estimate  EstimateConfig  `mapstructure:"estimate"`
	Log       LogConfig       `mapstructure:"log"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// CaptureConfig controls episode delimitation.
type CaptureConfig struct {
	// Debounce is the quiet period after the last significant edit.
	// Default: 4s
	Debounce time.Duration `mapstructure:"debounce"`

	// MinInsertLength is the trimmed single-line insertion length that must be
	// exceeded for an edit to count as a suggestion.
	// Default: 3
	MinInsertLength int `mapstructure:"min_insert_length"`

	// InclusiveMin also accepts insertions of exactly MinInsertLength.
	InclusiveMin bool `mapstructure:"inclusive_min"`

	// Strategy selects delta extraction: "chardiff" or "positional".
	// Default: "chardiff"
	Strategy string `mapstructure:"strategy"`

	// DiffTimeout bounds chardiff computation. Zero means no limit.
	DiffTimeout time.Duration `mapstructure:"diff_timeout"`
}

// TokenizerConfig selects the token counter.
type TokenizerConfig struct {
	// Scheme is "tiktoken" or "heuristic".
	Scheme string `mapstructure:"scheme"`
	// Model picks the tiktoken vocabulary by model name.
	Model string `mapstructure:"model"`
	// Encoding overrides Model, e.g. "cl100k_base".
	Encoding string `mapstructure:"encoding"`
	// CacheTTL memoises counts per text. Zero disables the cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// EstimateConfig holds the energy and emissions constants.
type EstimateConfig struct {
	JoulesPerToken float64 `mapstructure:"joules_per_token"`
	// GridIntensity is grams of CO2e per kWh.
	GridIntensity float64 `mapstructure:"grid_intensity"`
	MinTokens     int     `mapstructure:"min_tokens"`
	Precision     int     `mapstructure:"precision"`
}

// LogConfig locates the session logs.
type LogConfig struct {
	// Path is the human-readable append-only log.
	// Default: ~/.config/tokenwatt/suggestion_log.txt
	Path string `mapstructure:"path"`
	// LedgerPath is the SQLite episode ledger.
	// Default: ~/.config/tokenwatt/ledger.db
	LedgerPath    string `mapstructure:"ledger_path"`
	LedgerEnabled bool   `mapstructure:"ledger_enabled"`
}

// NotifyConfig controls desktop notifications for log write failures.
type NotifyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServerConfig configures `tokenwatt serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultLogPath returns the default text log location.
func DefaultLogPath() string {
	return paths.InConfigDir("suggestion_log.txt")
}

// DefaultLedgerPath returns the default SQLite ledger location.
func DefaultLedgerPath() string {
	return paths.InConfigDir("ledger.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	return paths.InConfigDir("traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = DefaultTracesFilePath()

	est := usage.DefaultConfig()
	return Config{
		Enabled: true,
		Capture: CaptureConfig{
			Debounce:        capture.DefaultDebounce,
			MinInsertLength: capture.DefaultClassifier().MinInsertLength,
			Strategy:        string(delta.DefaultStrategy),
		},
		Tokenizer: TokenizerConfig{
			Scheme:   string(tokenizer.SchemeTiktoken),
			Model:    tokenizer.DefaultModel,
			CacheTTL: 10 * time.Minute,
		},
		Estimate: EstimateConfig{
			JoulesPerToken: est.JoulesPerToken,
			GridIntensity:  est.GridIntensity,
			MinTokens:      est.MinTokens,
			Precision:      est.Precision,
		},
		Log: LogConfig{
			Path:          DefaultLogPath(),
			LedgerPath:    DefaultLedgerPath(),
			LedgerEnabled: true,
		},
		Notify:  NotifyConfig{Enabled: true},
		Server:  ServerConfig{Addr: "127.0.0.1:7420"},
		Tracing: tr,
		Flags:   flags.Defaults(),
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if err := ValidateCapture(c.Capture); err != nil {
		return err
	}
	if err := ValidateTokenizer(c.Tokenizer); err != nil {
		return err
	}
	if err := ValidateEstimate(c.Estimate); err != nil {
		return err
	}
	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}
	if c.Log.LedgerEnabled && c.Log.LedgerPath == "" {
		return fmt.Errorf("log.ledger_path is required when log.ledger_enabled is true")
	}
	if err := flags.Validate(c.Flags); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateCapture checks capture configuration for errors.
func ValidateCapture(cc CaptureConfig) error {
	if cc.Debounce <= 0 {
		return fmt.Errorf("capture.debounce must be positive, got %s", cc.Debounce)
	}
	if cc.MinInsertLength < 0 {
		return fmt.Errorf("capture.min_insert_length must not be negative, got %d", cc.MinInsertLength)
	}
	if cc.DiffTimeout < 0 {
		return fmt.Errorf("capture.diff_timeout must not be negative, got %s", cc.DiffTimeout)
	}
	if _, err := delta.New(delta.Strategy(cc.Strategy), delta.Options{}); err != nil {
		return fmt.Errorf("capture.strategy: %w", err)
	}
	return nil
}

// ValidateTokenizer checks tokenizer configuration for errors. It does not
// load vocabularies.
func ValidateTokenizer(tc TokenizerConfig) error {
	switch tokenizer.Scheme(tc.Scheme) {
	case "", tokenizer.SchemeTiktoken, tokenizer.SchemeHeuristic:
	default:
		return fmt.Errorf("tokenizer.scheme: %w: %q", tokenizer.ErrUnknownScheme, tc.Scheme)
	}
	if tc.CacheTTL < 0 {
		return fmt.Errorf("tokenizer.cache_ttl must not be negative, got %s", tc.CacheTTL)
	}
	return nil
}

// ValidateEstimate checks estimation constants for errors.
func ValidateEstimate(ec EstimateConfig) error {
	if ec.JoulesPerToken < 0 {
		return fmt.Errorf("estimate.joules_per_token must not be negative, got %v", ec.JoulesPerToken)
	}
	if ec.GridIntensity < 0 {
		return fmt.Errorf("estimate.grid_intensity must not be negative, got %v", ec.GridIntensity)
	}
	if ec.MinTokens < 0 {
		return fmt.Errorf("estimate.min_tokens must not be negative, got %d", ec.MinTokens)
	}
	if ec.Precision < 0 || ec.Precision > 10 {
		return fmt.Errorf("estimate.precision must be between 0 and 10, got %d", ec.Precision)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	if tc.Enabled {
		if tc.Exporter == tracing.ExporterFile && tc.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// Classifier returns the capture classifier described by c.
func (c Config) Classifier() capture.Classifier {
	return capture.Classifier{
		MinInsertLength: c.Capture.MinInsertLength,
		InclusiveMin:    c.Capture.InclusiveMin,
	}
}

// Extractor builds the configured delta extractor.
func (c Config) Extractor() (delta.Extractor, error) {
	return delta.New(delta.Strategy(c.Capture.Strategy), delta.Options{DiffTimeout: c.Capture.DiffTimeout})
}

// TokenizerSettings returns the tokenizer configuration.
func (c Config) TokenizerSettings() tokenizer.Config {
	return tokenizer.Config{
		Scheme:   tokenizer.Scheme(c.Tokenizer.Scheme),
		Model:    c.Tokenizer.Model,
		Encoding: c.Tokenizer.Encoding,
		CacheTTL: c.Tokenizer.CacheTTL,
	}
}

// Usage returns the estimator configuration.
func (c Config) Usage() usage.Config {
	return usage.Config{
		MinTokens:      c.Estimate.MinTokens,
		JoulesPerToken: c.Estimate.JoulesPerToken,
		GridIntensity:  c.Estimate.GridIntensity,
		Precision:      c.Estimate.Precision,
	}
}

// ExpandPaths resolves "~" and environment references in all file paths.
func (c *Config) ExpandPaths() {
	c.Log.Path = paths.Expand(c.Log.Path)
	c.Log.LedgerPath = paths.Expand(c.Log.LedgerPath)
	c.Tracing.FilePath = paths.Expand(c.Tracing.FilePath)
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# tokenwatt configuration

# Record suggestion episodes. Toggle with: tokenwatt toggle [on|off]
enabled: true

capture:
  debounce: 4s              # Quiet period after the last significant edit
  min_insert_length: 3      # Single-line insertions must be longer than this (trimmed)
  # inclusive_min: false    # Also accept insertions of exactly min_insert_length
  strategy: chardiff        # Delta extraction: "chardiff" or "positional"
  # diff_timeout: 1s        # Bound chardiff computation time

tokenizer:
  scheme: tiktoken          # "tiktoken" or "heuristic" (~4 chars per token)
  model: gpt-3.5-turbo      # Vocabulary by model name
  # encoding: cl100k_base   # Or pick the vocabulary directly
  cache_ttl: 10m            # Memoise counts per text, 0 disables

estimate:
  joules_per_token: 3.0
  grid_intensity: 77        # gCO2e per kWh
  min_tokens: 1             # Episodes below this count are not recorded
  precision: 2              # Decimal places in reported values

log:
  # path: ~/.config/tokenwatt/suggestion_log.txt
  # ledger_path: ~/.config/tokenwatt/ledger.db
  ledger_enabled: true

notify:
  enabled: true             # Desktop notification when the log cannot be written

server:
  addr: 127.0.0.1:7420

# flags:
#   flush-on-switch: false  # Flush instead of abandon when the active document changes
#   flush-on-exit: false    # Flush instead of abandon on shutdown

# Example: Send traces to a collector via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: localhost:4317
#   sample_rate: 0.1
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
