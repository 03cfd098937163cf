// Package jobs wires the gamesync building blocks into the batch jobs the
// CLI exposes: collecting the master list, the resumable enrichment runs,
// the in-place filters and joins, store reconciliation, and the pipeline
// that chains them.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentstation/gamesync/internal/embed"
	"github.com/agentstation/gamesync/internal/storefront"
	"github.com/agentstation/gamesync/internal/summarize"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
)

// Job names.
const (
	JobCollect      = "collect"
	JobFilterNames  = "filter-names"
	JobDetails      = "details"
	JobDescribe     = "describe"
	JobTags         = "tags"
	JobFilterTags   = "filter-tags"
	JobMergeGenres  = "merge-genres"
	JobSummarize    = "summarize"
	JobMergeSummary = "merge-summary"
	JobEmbed        = "embed"
	JobSync         = "sync"
)

// Job is one named unit of work.
type Job struct {
	Name        string
	Description string
	run         func(ctx context.Context, r *Runner) (any, error)
}

var registry = map[string]Job{
	JobCollect:      {JobCollect, "Rebuild the master list from the storefront search", func(ctx context.Context, r *Runner) (any, error) { return r.Collect(ctx) }},
	JobFilterNames:  {JobFilterNames, "Drop blocklisted titles from the master list", func(ctx context.Context, r *Runner) (any, error) { return r.FilterNames(ctx) }},
	JobDetails:      {JobDetails, "Fetch the full game document for every master id", func(ctx context.Context, r *Runner) (any, error) { return r.Details(ctx) }},
	JobDescribe:     {JobDescribe, "Fetch the cleaned long description for every master id", func(ctx context.Context, r *Runner) (any, error) { return r.Describe(ctx) }},
	JobTags:         {JobTags, "Scrape the user tags for every master id", func(ctx context.Context, r *Runner) (any, error) { return r.Tags(ctx) }},
	JobFilterTags:   {JobFilterTags, "Drop blocklisted tags from the games store", func(ctx context.Context, r *Runner) (any, error) { return r.FilterTags(ctx) }},
	JobMergeGenres:  {JobMergeGenres, "Copy genres and categories into the description store", func(ctx context.Context, r *Runner) (any, error) { return r.Merge(ctx, JobMergeGenres) }},
	JobSummarize:    {JobSummarize, "Generate a catalog summary for every description", func(ctx context.Context, r *Runner) (any, error) { return r.Summarize(ctx) }},
	JobMergeSummary: {JobMergeSummary, "Replace long descriptions with their summaries", func(ctx context.Context, r *Runner) (any, error) { return r.Merge(ctx, JobMergeSummary) }},
	JobEmbed:        {JobEmbed, "Attach a semantic vector to every game", func(ctx context.Context, r *Runner) (any, error) { return r.Embed(ctx) }},
	JobSync:         {JobSync, "Prune every derived store against the master list", func(ctx context.Context, r *Runner) (any, error) { return r.Sync(ctx) }},
}

// Jobs returns every registered job sorted by name.
func Jobs() []Job {
	out := make([]Job, 0, len(registry))
	for _, j := range registry {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// Lookup returns the named job.
func Lookup(name string) (Job, bool) {
	j, ok := registry[name]
	return j, ok
}

// Runner runs jobs against one resolved Config. Collaborator clients are
// created on first use unless injected with an Option.
type Runner struct {
	cfg Config

	mu         sync.Mutex
	storefront *storefront.Client
	generator  summarize.Generator
	embedder   embed.Embedder
}

// Option configures a Runner.
type Option func(*Runner)

// WithStorefront injects the storefront client.
func WithStorefront(c *storefront.Client) Option {
	return func(r *Runner) { r.storefront = c }
}

// WithGenerator injects the summary backend.
func WithGenerator(g summarize.Generator) Option {
	return func(r *Runner) { r.generator = g }
}

// WithEmbedder injects the embedding backend.
func WithEmbedder(e embed.Embedder) Option {
	return func(r *Runner) { r.embedder = e }
}

// NewRunner resolves cfg and creates a Runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	resolved, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	r := &Runner{cfg: resolved}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the resolved configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run runs the named job and returns its report.
func (r *Runner) Run(ctx context.Context, name string) (any, error) {
	job, ok := registry[name]
	if !ok {
		return nil, errors.NewValidationError("job", name, "unknown job")
	}
	ctx = logging.WithJob(ctx, name)
	return job.run(ctx, r)
}

func (r *Runner) storefrontClient(delay time.Duration) *storefront.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.storefront != nil {
		return r.storefront
	}
	sf := r.cfg.Storefront
	return storefront.New(storefront.Options{
		BaseURL:     sf.BaseURL,
		UserAgent:   sf.UserAgent,
		Timeout:     sf.Timeout,
		Delay:       delay,
		CountryCode: sf.CountryCode,
		Language:    sf.Language,
	})
}

func (r *Runner) summaryGenerator(ctx context.Context) (summarize.Generator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generator != nil {
		return r.generator, nil
	}

	s := r.cfg.Summary
	opts := summarize.Options{BaseURL: s.BaseURL, Model: s.Model}
	var (
		gen summarize.Generator
		err error
	)
	switch s.Backend {
	case summarize.BackendGemini:
		opts.APIKey = s.GeminiAPIKey
		gen, err = summarize.NewGemini(ctx, opts)
	default:
		opts.APIKey = s.OpenRouterAPIKey
		gen, err = summarize.NewOpenRouter(opts)
	}
	if err != nil {
		return nil, err
	}
	r.generator = gen
	return gen, nil
}

func (r *Runner) embeddingBackend(ctx context.Context) (embed.Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.embedder != nil {
		return r.embedder, nil
	}
	key := r.cfg.Embedding.APIKey
	if key == "" {
		key = r.cfg.Summary.GeminiAPIKey
	}
	e, err := embed.NewGemini(ctx, summarize.Options{APIKey: key, Model: r.cfg.Embedding.Model})
	if err != nil {
		return nil, err
	}
	r.embedder = e
	return e, nil
}
