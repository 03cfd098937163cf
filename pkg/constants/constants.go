// Package constants provides shared constants used throughout the gamesync codebase.
// This includes timeouts, pacing delays, file permissions, and the default
// locations of the datasets the jobs read and write.
package constants

import "time"

// Timeout constants define various timeout durations used in the application.
const (
	// DefaultHTTPTimeout is the timeout for a single storefront or model API request.
	DefaultHTTPTimeout = 10 * time.Second

	// ShutdownTimeout is how long main waits for cleanup after an error.
	ShutdownTimeout = 5 * time.Second
)

// Pacing constants control how fast the jobs talk to upstream services.
const (
	// DetailsDelay is the minimum gap between appdetails requests.
	DetailsDelay = 1300 * time.Millisecond

	// DescribeDelay is the minimum gap between description requests.
	DescribeDelay = 800 * time.Millisecond

	// SearchPageDelay is the pause between storefront search pages.
	SearchPageDelay = 1 * time.Second

	// SearchErrorDelay is the pause after a failed search page.
	SearchErrorDelay = 5 * time.Second

	// RetryDelay is the fixed wait between attempts for one id.
	RetryDelay = 2 * time.Second

	// RateLimitSleep is how long the whole run pauses after a 429.
	RateLimitSleep = 60 * time.Second
)

// File permission constants define standard Unix file permissions.
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities.
const (
	// MaxRetries is the number of attempts made for one id before it is marked failed.
	MaxRetries = 3

	// MaxRateLimitRetries caps how many rate-limit pauses one id may trigger.
	MaxRateLimitRetries = 5

	// DefaultConcurrency is the worker count for sequential jobs.
	DefaultConcurrency = 1

	// SummaryConcurrency is the worker count for summary generation.
	SummaryConcurrency = 7

	// MaxConcurrency caps any configured worker count.
	MaxConcurrency = 10

	// SearchPageSize is the number of results requested per search page.
	SearchPageSize = 50

	// DefaultCollectTarget is the number of games each search pass aims for.
	DefaultCollectTarget = 3000

	// MaxLineSize bounds one NDJSON line; vectorized records are large.
	MaxLineSize = 64 * 1024 * 1024
)

// Default values for collaborators.
const (
	// DefaultStorefrontURL is the storefront base URL.
	DefaultStorefrontURL = "https://store.steampowered.com"

	// DefaultCountryCode is the storefront country used for prices.
	DefaultCountryCode = "es"

	// DefaultLanguage is the storefront language used for texts.
	DefaultLanguage = "spanish"

	// SearchCountryCode is the country used when collecting the master list.
	SearchCountryCode = "us"

	// DefaultUserAgent identifies the scraper to the storefront.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultOpenRouterURL is the OpenAI-compatible API base URL.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultSummaryModel is the OpenRouter model used for summaries.
	DefaultSummaryModel = "openai/gpt-4o-mini"

	// DefaultGeminiModel is the Gemini model used for summaries.
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultEmbeddingModel is the Gemini embedding model.
	DefaultEmbeddingModel = "text-embedding-004"

	// SummaryTemperature is the sampling temperature for summaries.
	SummaryTemperature = 0.3

	// SummaryMaxTokens caps the length of a generated summary.
	SummaryMaxTokens = 200
)

// Path constants name the default dataset locations relative to the data directory.
const (
	DefaultDataDir     = "data"
	DefaultMasterFile  = "steam-top-games.json"
	DefaultGamesFile   = "steam-games-data.ndjson"
	DefaultRawDescFile = "raw-desc.ndjson"
	DefaultSummaryFile = "summaries.ndjson"
	DefaultVectorFile  = "steam-games-data-vect.ndjson"
	DefaultTagsFile    = "tags.ndjson"
)

// Record field names shared by the stores.
const (
	// IDField is the id field of every derived store.
	IDField = "steam_id"

	// MasterIDField is the id field of the master list.
	MasterIDField = "appid"
)

// Format constants.
const (
	// TimeFormatFilename is the format used in versioned backup names
	TimeFormatFilename = "20060102-150405"

	// TimeFormatScraped is the format of the scraped_at field
	TimeFormatScraped = "2006-01-02 15:04:05"
)
