// Package config loads BankAtlas configuration from config files,
// environment variables, and .env files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bankatlas/bankatlas/pkg/sources"
)

// Defaults for tunable knobs.
const (
	DefaultSnapshotPath          = "bankatlas.yaml"
	DefaultExportDir             = "exports"
	DefaultCompletenessThreshold = 0.6
	DefaultStalenessWindow       = 30 * 24 * time.Hour
	DefaultSubBatchSize          = 5
	DefaultConcurrency           = 3
	DefaultSourceDelay           = 2 * time.Second
	DefaultBatchCooldown         = 5 * time.Second
	DefaultRegistryTimeout       = 30 * time.Second
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	Output  string

	// Config file
	ConfigFile string

	// Persistence
	SnapshotPath string
	ExportDir    string

	// Scheduling
	CompletenessThreshold float64
	StalenessWindow       time.Duration

	// Batch collection
	SubBatchSize  int
	Concurrency   int
	SourceDelay   time.Duration
	BatchCooldown time.Duration

	// Reliability-weight overrides, keyed by source type.
	WeightOverrides map[string]float64

	// Registry API client
	RegistryBaseURL string
	RegistryAPIKey  string
	RegistryTimeout time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Load reads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.bankatlas.yaml)
// 5. Defaults
func Load(configFile string) (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BANKATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bankatlas")
	}

	// A missing config file is fine; everything has a default.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		Output:  viper.GetString("output"),

		ConfigFile: viper.ConfigFileUsed(),

		SnapshotPath: viper.GetString("snapshot_path"),
		ExportDir:    viper.GetString("export_dir"),

		CompletenessThreshold: viper.GetFloat64("completeness_threshold"),
		StalenessWindow:       viper.GetDuration("staleness_window"),

		SubBatchSize:  viper.GetInt("sub_batch_size"),
		Concurrency:   viper.GetInt("concurrency"),
		SourceDelay:   viper.GetDuration("source_delay"),
		BatchCooldown: viper.GetDuration("batch_cooldown"),

		WeightOverrides: weightOverrides(),

		RegistryBaseURL: viper.GetString("registry_base_url"),
		RegistryAPIKey:  viper.GetString("registry_api_key"),
		RegistryTimeout: viper.GetDuration("registry_timeout"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the loaded values for out-of-range settings.
func (c *Config) Validate() error {
	if c.CompletenessThreshold < 0 || c.CompletenessThreshold > 1 {
		return fmt.Errorf("completeness_threshold %v outside [0,1]", c.CompletenessThreshold)
	}
	if c.SubBatchSize < 1 {
		return fmt.Errorf("sub_batch_size must be at least 1, got %d", c.SubBatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	for name, weight := range c.WeightOverrides {
		if weight < 0 || weight > 1 {
			return fmt.Errorf("weight override for %s is %v, outside [0,1]", name, weight)
		}
	}
	return nil
}

// Weights returns the default reliability-weight table with any configured
// overrides applied.
func (c *Config) Weights() sources.Weights {
	overrides := make(sources.Weights, len(c.WeightOverrides))
	for name, weight := range c.WeightOverrides {
		overrides[sources.Type(name)] = weight
	}
	return sources.DefaultWeights().Merge(overrides)
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet bool, output string) {
	c.Verbose = verbose
	c.Quiet = quiet
	if output != "" {
		c.Output = output
	}
}

func setDefaults() {
	viper.SetDefault("snapshot_path", DefaultSnapshotPath)
	viper.SetDefault("export_dir", DefaultExportDir)
	viper.SetDefault("completeness_threshold", DefaultCompletenessThreshold)
	viper.SetDefault("staleness_window", DefaultStalenessWindow)
	viper.SetDefault("sub_batch_size", DefaultSubBatchSize)
	viper.SetDefault("concurrency", DefaultConcurrency)
	viper.SetDefault("source_delay", DefaultSourceDelay)
	viper.SetDefault("batch_cooldown", DefaultBatchCooldown)
	viper.SetDefault("registry_base_url", "https://banks.data.fdic.gov/api")
	viper.SetDefault("registry_timeout", DefaultRegistryTimeout)
}

// weightOverrides reads the source_weights map from configuration, e.g.
//
//	source_weights:
//	  third-party: 0.55
func weightOverrides() map[string]float64 {
	raw := viper.GetStringMap("source_weights")
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for name := range raw {
		out[name] = viper.GetFloat64("source_weights." + name)
	}
	return out
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if
// not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
