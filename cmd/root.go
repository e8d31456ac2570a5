package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/tokenwatt/internal/config"
	"github.com/zjrosen/tokenwatt/internal/log"
	"github.com/zjrosen/tokenwatt/internal/paths"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 reply cannot race the input loop.
	_ = lipgloss.HasDarkBackground()
}

const localConfigPath = ".tokenwatt/config.yaml"

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tokenwatt",
	Short: "Estimate the energy cost of accepted AI code suggestions",
	Long: `tokenwatt watches how documents change, recognises accepted AI completions,
counts their tokens and keeps a running estimate of the energy and emissions
they cost.

Edits arrive from an editor bridge (stdin or HTTP) or from watched files.
Every accepted suggestion is appended to a human-readable log and, optionally,
a SQLite ledger.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initDebugLog(cmd.Name())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/tokenwatt/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write debug logs (also TOKENWATT_DEBUG=1; path from TOKENWATT_LOG)")
}

var debugCleanup func()

// initDebugLog starts file logging when debug mode is on.
func initDebugLog(prefix string) error {
	if os.Getenv("TOKENWATT_DEBUG") == "" && !debugFlag {
		return nil
	}
	logPath := os.Getenv("TOKENWATT_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.InitWithTeaLog(logPath, "tokenwatt-"+prefix)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	debugCleanup = cleanup
	log.Info(log.CatConfig, "tokenwatt starting", "debug", true, "logPath", logPath, "version", version)
	return nil
}

func setDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("capture.debounce", d.Capture.Debounce)
	v.SetDefault("capture.min_insert_length", d.Capture.MinInsertLength)
	v.SetDefault("capture.inclusive_min", d.Capture.InclusiveMin)
	v.SetDefault("capture.strategy", d.Capture.Strategy)
	v.SetDefault("capture.diff_timeout", d.Capture.DiffTimeout)
	v.SetDefault("tokenizer.scheme", d.Tokenizer.Scheme)
	v.SetDefault("tokenizer.model", d.Tokenizer.Model)
	v.SetDefault("tokenizer.encoding", d.Tokenizer.Encoding)
	v.SetDefault("tokenizer.cache_ttl", d.Tokenizer.CacheTTL)
	v.SetDefault("estimate.joules_per_token", d.Estimate.JoulesPerToken)
	v.SetDefault("estimate.grid_intensity", d.Estimate.GridIntensity)
	v.SetDefault("estimate.min_tokens", d.Estimate.MinTokens)
	v.SetDefault("estimate.precision", d.Estimate.Precision)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.ledger_path", d.Log.LedgerPath)
	v.SetDefault("log.ledger_enabled", d.Log.LedgerEnabled)
	v.SetDefault("notify.enabled", d.Notify.Enabled)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	for name, on := range d.Flags {
		v.SetDefault("flags."+name, on)
	}
}

func initConfig() {
	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("TOKENWATT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .tokenwatt/config.yaml (current directory)
		// 2. ~/.config/tokenwatt/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			viper.AddConfigPath(paths.ConfigDir())
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// First run: write the commented default so the toggle has a home.
			defaultPath := paths.InConfigDir("config.yaml")
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
		}
	}

	loadConfig()
}

func loadConfig() {
	cfg = config.Config{}
	_ = viper.Unmarshal(&cfg)
	cfg.ExpandPaths()
}

// configFilePath is where toggles are persisted.
func configFilePath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return paths.InConfigDir("config.yaml")
}

// watchConfig calls apply with the reloaded configuration whenever the
// config file changes on disk.
func watchConfig(apply func(config.Config)) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info(log.CatConfig, "Config file changed", "path", filepath.Clean(e.Name), "op", e.Op.String())
		var next config.Config
		if err := viper.Unmarshal(&next); err != nil {
			log.ErrorErr(log.CatConfig, "Reloading config failed", err)
			return
		}
		next.ExpandPaths()
		apply(next)
	})
	viper.WatchConfig()
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if debugCleanup != nil {
			debugCleanup()
		}
	}()
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
