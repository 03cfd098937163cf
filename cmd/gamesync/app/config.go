package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/gamesync/pkg/jobs"
)

// EnvPrefix prefixes every environment variable read into the config,
// except the API keys which keep their usual names.
const EnvPrefix = "GAMESYNC"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Job configuration
	Jobs jobs.Config

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (configFile, or .gamesync.yaml in $HOME or the working directory)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Bind API keys
	if err := bindAPIKeys(v); err != nil {
		return nil, err
	}

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	} else {
		// Search for config in standard locations
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".gamesync")

		// Read config file (ignore error if not found)
		_ = v.ReadInConfig()
	}

	var jobsConfig jobs.Config
	if err := v.Unmarshal(&jobsConfig); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Build config from viper
	config := &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		// Config file
		ConfigFile: v.ConfigFileUsed(),

		Jobs: jobsConfig,

		// Logging configuration
		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// setDefaults registers every job setting so that the environment can set
// keys the config file leaves out.
func setDefaults(v *viper.Viper) {
	d := jobs.DefaultConfig()

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("backup_policy", string(d.BackupPolicy))
	v.SetDefault("filter_list", "")
	v.SetDefault("validator", "")
	v.SetDefault("dry_run", false)
	v.SetDefault("force", false)
	v.SetDefault("limit", 0)
	v.SetDefault("reverse", false)

	for _, key := range []string{"master", "games", "raw_desc", "summaries", "vectors", "tags"} {
		v.SetDefault("paths."+key, "")
	}

	v.SetDefault("collect.target", d.Collect.Target)
	v.SetDefault("collect.passes", d.Collect.Passes)
	v.SetDefault("collect.page_delay", d.Collect.PageDelay)
	v.SetDefault("collect.error_delay", d.Collect.ErrorDelay)

	v.SetDefault("storefront.base_url", d.Storefront.BaseURL)
	v.SetDefault("storefront.user_agent", d.Storefront.UserAgent)
	v.SetDefault("storefront.country_code", d.Storefront.CountryCode)
	v.SetDefault("storefront.language", d.Storefront.Language)
	v.SetDefault("storefront.timeout", d.Storefront.Timeout)
	v.SetDefault("storefront.details_delay", d.Storefront.DetailsDelay)
	v.SetDefault("storefront.describe_delay", d.Storefront.DescribeDelay)
	v.SetDefault("storefront.concurrency", d.Storefront.Concurrency)

	v.SetDefault("summary.backend", d.Summary.Backend)
	v.SetDefault("summary.model", "")
	v.SetDefault("summary.base_url", "")
	v.SetDefault("summary.concurrency", d.Summary.Concurrency)

	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.max_rate_limit_retries", d.Retry.MaxRateLimitRetries)
	v.SetDefault("retry.delay", d.Retry.Delay)
	v.SetDefault("retry.rate_limit_sleep", d.Retry.RateLimitSleep)
	v.SetDefault("retry.progress_every", d.Retry.ProgressEvery)

	v.SetDefault("pipeline", d.Pipeline)
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// godotenv never overrides a variable that is already set, so the
	// first file to define a key wins
	envFiles := []string{
		".env.local",
		".env",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindAPIKeys binds the collaborator API keys to their config keys under
// their conventional environment names.
func bindAPIKeys(v *viper.Viper) error {
	bindings := map[string][]string{
		"summary.openrouter_api_key": {"OPENROUTER_API_KEY"},
		"summary.gemini_api_key":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"embedding.api_key":          {"GEMINI_EMBEDDING_API_KEY"},
	}

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
