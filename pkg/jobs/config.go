package jobs

import (
	"path/filepath"
	"time"

	"dario.cat/mergo"

	"github.com/agentstation/gamesync/internal/storefront"
	"github.com/agentstation/gamesync/internal/summarize"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/store"
)

// Config is everything a job needs to know. It is built once per invocation
// from the config file, the environment and the command flags.
type Config struct {
	// DataDir holds every store whose path is not set explicitly.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	Paths   Paths  `mapstructure:"paths" yaml:"paths" json:"paths"`

	BackupPolicy store.BackupPolicy `mapstructure:"backup_policy" yaml:"backup_policy" json:"backup_policy"`

	// FilterList is an optional YAML file overriding the blocklists.
	FilterList string `mapstructure:"filter_list" yaml:"filter_list" json:"filter_list,omitempty"`

	// Validator is an optional master-format list that restricts the ids the
	// enrichment jobs may process. It takes precedence over the master list.
	Validator string `mapstructure:"validator" yaml:"validator" json:"validator,omitempty"`

	DryRun  bool `mapstructure:"dry_run" yaml:"dry_run" json:"dry_run"`
	Force   bool `mapstructure:"force" yaml:"force" json:"force"`
	Limit   int  `mapstructure:"limit" yaml:"limit" json:"limit"`
	Reverse bool `mapstructure:"reverse" yaml:"reverse" json:"reverse"`

	Collect    CollectConfig    `mapstructure:"collect" yaml:"collect" json:"collect"`
	Storefront StorefrontConfig `mapstructure:"storefront" yaml:"storefront" json:"storefront"`
	Summary    SummaryConfig    `mapstructure:"summary" yaml:"summary" json:"summary"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding" yaml:"embedding" json:"embedding"`
	Retry      RetryConfig      `mapstructure:"retry" yaml:"retry" json:"retry"`

	// Pipeline is the job sequence run by the pipeline command.
	Pipeline []string `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
}

// Paths names every store. Empty paths resolve inside DataDir.
type Paths struct {
	Master    string `mapstructure:"master" yaml:"master" json:"master"`
	Games     string `mapstructure:"games" yaml:"games" json:"games"`
	RawDesc   string `mapstructure:"raw_desc" yaml:"raw_desc" json:"raw_desc"`
	Summaries string `mapstructure:"summaries" yaml:"summaries" json:"summaries"`
	Vectors   string `mapstructure:"vectors" yaml:"vectors" json:"vectors"`
	Tags      string `mapstructure:"tags" yaml:"tags" json:"tags"`
}

// CollectConfig tunes the master list collection.
type CollectConfig struct {
	// Target is the number of games each pass aims for.
	Target int `mapstructure:"target" yaml:"target" json:"target"`

	// Passes lists the search orders, run in sequence.
	Passes []string `mapstructure:"passes" yaml:"passes" json:"passes"`

	PageDelay  time.Duration `mapstructure:"page_delay" yaml:"page_delay" json:"page_delay"`
	ErrorDelay time.Duration `mapstructure:"error_delay" yaml:"error_delay" json:"error_delay"`
}

// StorefrontConfig configures the storefront client.
type StorefrontConfig struct {
	BaseURL       string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent" json:"user_agent"`
	CountryCode   string        `mapstructure:"country_code" yaml:"country_code" json:"country_code"`
	Language      string        `mapstructure:"language" yaml:"language" json:"language"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	DetailsDelay  time.Duration `mapstructure:"details_delay" yaml:"details_delay" json:"details_delay"`
	DescribeDelay time.Duration `mapstructure:"describe_delay" yaml:"describe_delay" json:"describe_delay"`
	Concurrency   int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
}

// SummaryConfig selects and configures the text-generation backend.
type SummaryConfig struct {
	Backend          string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Model            string `mapstructure:"model" yaml:"model" json:"model,omitempty"`
	BaseURL          string `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" yaml:"-" json:"-"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key" yaml:"-" json:"-"`
	Concurrency      int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Model       string `mapstructure:"model" yaml:"model" json:"model"`
	APIKey      string `mapstructure:"api_key" yaml:"-" json:"-"`
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency"`
}

// RetryConfig bounds per-id retries of the enrichment jobs.
type RetryConfig struct {
	MaxRetries          int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	MaxRateLimitRetries int           `mapstructure:"max_rate_limit_retries" yaml:"max_rate_limit_retries" json:"max_rate_limit_retries"`
	Delay               time.Duration `mapstructure:"delay" yaml:"delay" json:"delay"`
	RateLimitSleep      time.Duration `mapstructure:"rate_limit_sleep" yaml:"rate_limit_sleep" json:"rate_limit_sleep"`
	ProgressEvery       int           `mapstructure:"progress_every" yaml:"progress_every" json:"progress_every"`
}

// DefaultPipeline is the sequence run when none is configured: rebuild the
// master list, drop unwanted titles, refresh the details and prune every
// derived store.
var DefaultPipeline = []string{JobCollect, JobFilterNames, JobDetails, JobFilterTags, JobSync}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:      constants.DefaultDataDir,
		BackupPolicy: store.BackupSkip,
		Collect: CollectConfig{
			Target:     constants.DefaultCollectTarget,
			Passes:     []string{storefront.SortConcurrentUsers, storefront.SortRelevance},
			PageDelay:  constants.SearchPageDelay,
			ErrorDelay: constants.SearchErrorDelay,
		},
		Storefront: StorefrontConfig{
			BaseURL:       constants.DefaultStorefrontURL,
			UserAgent:     constants.DefaultUserAgent,
			CountryCode:   constants.DefaultCountryCode,
			Language:      constants.DefaultLanguage,
			Timeout:       constants.DefaultHTTPTimeout,
			DetailsDelay:  constants.DetailsDelay,
			DescribeDelay: constants.DescribeDelay,
			Concurrency:   constants.DefaultConcurrency,
		},
		Summary: SummaryConfig{
			Backend:     summarize.BackendOpenRouter,
			Concurrency: constants.SummaryConcurrency,
		},
		Embedding: EmbeddingConfig{
			Model:       constants.DefaultEmbeddingModel,
			Concurrency: constants.DefaultConcurrency,
		},
		Retry: RetryConfig{
			MaxRetries:          constants.MaxRetries,
			MaxRateLimitRetries: constants.MaxRateLimitRetries,
			Delay:               constants.RetryDelay,
			RateLimitSleep:      constants.RateLimitSleep,
			ProgressEvery:       50,
		},
		Pipeline: append([]string(nil), DefaultPipeline...),
	}
}

// Resolve fills every unset field from DefaultConfig, resolves store paths
// against DataDir and validates the result.
func (c Config) Resolve() (Config, error) {
	if err := mergo.Merge(&c, DefaultConfig()); err != nil {
		return Config{}, errors.NewConfigError("jobs", "applying defaults", err)
	}

	resolve := func(p *string, name string) {
		if *p == "" {
			*p = filepath.Join(c.DataDir, name)
		}
	}
	resolve(&c.Paths.Master, constants.DefaultMasterFile)
	resolve(&c.Paths.Games, constants.DefaultGamesFile)
	resolve(&c.Paths.RawDesc, constants.DefaultRawDescFile)
	resolve(&c.Paths.Summaries, constants.DefaultSummaryFile)
	resolve(&c.Paths.Vectors, constants.DefaultVectorFile)
	resolve(&c.Paths.Tags, constants.DefaultTagsFile)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration for values no job can work with.
func (c *Config) Validate() error {
	if _, err := store.ParseBackupPolicy(string(c.BackupPolicy)); err != nil {
		return err
	}
	if c.Limit < 0 {
		return errors.NewValidationError("limit", c.Limit, "must not be negative")
	}
	switch c.Summary.Backend {
	case summarize.BackendOpenRouter, summarize.BackendGemini:
	default:
		return errors.NewValidationError("summary.backend", c.Summary.Backend, "must be openrouter or gemini")
	}
	for field, n := range map[string]int{
		"storefront.concurrency": c.Storefront.Concurrency,
		"summary.concurrency":    c.Summary.Concurrency,
		"embedding.concurrency":  c.Embedding.Concurrency,
	} {
		if n < 1 || n > constants.MaxConcurrency {
			return errors.NewValidationError(field, n, "must be between 1 and 10")
		}
	}
	for _, name := range c.Pipeline {
		if _, ok := registry[name]; !ok {
			return errors.NewValidationError("pipeline", name, "unknown job")
		}
	}
	return nil
}

// DerivedStores returns the stores kept in sync with the master list.
func (c *Config) DerivedStores() []string {
	return []string{c.Paths.Games, c.Paths.RawDesc, c.Paths.Summaries, c.Paths.Vectors, c.Paths.Tags}
}
