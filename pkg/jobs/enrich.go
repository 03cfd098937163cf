package jobs

import (
	"context"
	"os"
	"path/filepath"

	"github.com/agentstation/gamesync/internal/embed"
	"github.com/agentstation/gamesync/internal/storefront"
	"github.com/agentstation/gamesync/internal/summarize"
	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/enhancer"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/skipset"
	"github.com/agentstation/gamesync/pkg/store"
)

// CollectResult reports a master list rebuild.
type CollectResult struct {
	Path   string       `json:"path" yaml:"path"`
	Passes []PassResult `json:"passes" yaml:"passes"`
	Total  int          `json:"total" yaml:"total"`
}

// PassResult reports one search pass.
type PassResult struct {
	SortBy string `json:"sort_by" yaml:"sort_by"`
	Found  int    `json:"found" yaml:"found"`
}

// EnrichResult reports an enrichment run.
type EnrichResult struct {
	Job    string `json:"job" yaml:"job"`
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`

	// AlreadyDone is the number of still listed ids the output store held
	// before the run.
	AlreadyDone int `json:"already_done" yaml:"already_done"`

	// Stale counts output ids that are no longer listed. Sync removes them.
	Stale int `json:"stale" yaml:"stale"`

	Stats *enhancer.Stats `json:"stats" yaml:"stats"`
}

// Collect rebuilds the master list. Each configured search order adds up to
// Target games; a game found by a later pass keeps its first position and
// takes the later name.
func (r *Runner) Collect(ctx context.Context) (*CollectResult, error) {
	cfg := r.cfg.Collect
	client := r.storefrontClient(0)
	logger := logging.Ctx(ctx)

	found := catalog.NewIDMap[string]()
	result := &CollectResult{Path: r.cfg.Paths.Master}
	for _, sortBy := range cfg.Passes {
		pass := catalog.NewIDMap[string]()
		err := client.Collect(ctx, storefront.CollectOptions{
			SortBy:     sortBy,
			Target:     cfg.Target,
			PageDelay:  cfg.PageDelay,
			ErrorDelay: cfg.ErrorDelay,
		}, pass)
		if err != nil {
			return nil, err
		}
		for _, id := range pass.Order() {
			name, _ := pass.Get(id)
			found.Put(id, name)
		}
		result.Passes = append(result.Passes, PassResult{SortBy: sortBy, Found: pass.Len()})
	}
	result.Total = found.Len()

	if r.cfg.DryRun {
		return result, nil
	}
	if result.Total == 0 {
		return nil, errors.NewValidationError("collect", 0, "search returned no games, keeping the existing master list")
	}

	records := make([]catalog.MasterRecord, 0, found.Len())
	for _, id := range found.Order() {
		name, _ := found.Get(id)
		records = append(records, catalog.MasterRecord{AppID: id, Name: name})
	}
	if err := os.MkdirAll(filepath.Dir(r.cfg.Paths.Master), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", r.cfg.Paths.Master, err)
	}
	if err := store.SaveMaster(r.cfg.Paths.Master, records); err != nil {
		return nil, err
	}
	logger.Info().Int("games", result.Total).Str("path", result.Path).Msg("Master list written")
	return result, nil
}

// Details fetches the game document of every master id into the games store.
func (r *Runner) Details(ctx context.Context) (*EnrichResult, error) {
	client := r.storefrontClient(r.cfg.Storefront.DetailsDelay)
	return r.enrichFromMaster(ctx, JobDetails, storefront.NewDetailsEnhancer(client), r.cfg.Paths.Games, r.cfg.Storefront.Concurrency)
}

// Describe fetches the cleaned description of every master id.
func (r *Runner) Describe(ctx context.Context) (*EnrichResult, error) {
	client := r.storefrontClient(r.cfg.Storefront.DescribeDelay)
	return r.enrichFromMaster(ctx, JobDescribe, storefront.NewDescribeEnhancer(client), r.cfg.Paths.RawDesc, r.cfg.Storefront.Concurrency)
}

// Tags scrapes the user tags of every master id.
func (r *Runner) Tags(ctx context.Context) (*EnrichResult, error) {
	client := r.storefrontClient(r.cfg.Storefront.DescribeDelay)
	return r.enrichFromMaster(ctx, JobTags, storefront.NewTagsEnhancer(client), r.cfg.Paths.Tags, r.cfg.Storefront.Concurrency)
}

// Summarize generates a summary for every record of the description store.
func (r *Runner) Summarize(ctx context.Context) (*EnrichResult, error) {
	gen, err := r.summaryGenerator(ctx)
	if err != nil {
		return nil, err
	}
	return r.enrichFromStore(ctx, JobSummarize, summarize.NewEnhancer(gen), r.cfg.Paths.RawDesc, r.cfg.Paths.Summaries, r.cfg.Summary.Concurrency)
}

// Embed attaches a vector to every record of the games store.
func (r *Runner) Embed(ctx context.Context) (*EnrichResult, error) {
	e, err := r.embeddingBackend(ctx)
	if err != nil {
		return nil, err
	}
	return r.enrichFromStore(ctx, JobEmbed, embed.NewEnhancer(e), r.cfg.Paths.Games, r.cfg.Paths.Vectors, r.cfg.Embedding.Concurrency)
}

func (r *Runner) enrichFromMaster(ctx context.Context, job string, e enhancer.Enhancer, output string, workers int) (*EnrichResult, error) {
	master, err := store.LoadMaster(ctx, r.cfg.Paths.Master)
	if err != nil {
		return nil, err
	}
	valid, err := r.validIDs(ctx, master)
	if err != nil {
		return nil, err
	}
	tasks := enhancer.FromMaster(master, r.cfg.Reverse)
	return r.enrich(ctx, job, e, tasks, valid, r.cfg.Paths.Master, output, workers)
}

func (r *Runner) enrichFromStore(ctx context.Context, job string, e enhancer.Enhancer, input, output string, workers int) (*EnrichResult, error) {
	tasks, _, err := enhancer.FromStore(ctx, input, constants.IDField)
	if err != nil {
		return nil, err
	}
	valid, err := r.validIDs(ctx, nil)
	if err != nil {
		return nil, err
	}
	return r.enrich(ctx, job, e, tasks, valid, input, output, workers)
}

// validIDs returns the ids a run may touch. The validator list wins over the
// master list; without either every id is allowed.
func (r *Runner) validIDs(ctx context.Context, master *catalog.Master) (catalog.IDSet, error) {
	if r.cfg.Validator != "" {
		v, err := store.LoadMaster(ctx, r.cfg.Validator)
		if err != nil {
			return nil, err
		}
		return v.IDs, nil
	}
	if master != nil {
		return master.IDs, nil
	}
	m, err := store.LoadMaster(ctx, r.cfg.Paths.Master)
	switch {
	case err == nil:
		return m.IDs, nil
	case errors.IsMissingInput(err):
		logging.Ctx(ctx).Warn().Str("master", r.cfg.Paths.Master).Msg("No master list, processing every id")
		return nil, nil
	default:
		return nil, err
	}
}

func (r *Runner) enrich(ctx context.Context, job string, e enhancer.Enhancer, tasks []enhancer.Task, valid catalog.IDSet, input, output string, workers int) (*EnrichResult, error) {
	ctx = logging.WithStore(ctx, output)

	skip, _, err := skipset.Load(ctx, output, constants.IDField)
	if err != nil {
		return nil, err
	}
	result := &EnrichResult{Job: job, Input: input, Output: output}
	if valid != nil {
		if result.Stale = skip.Restrict(valid); result.Stale > 0 {
			logging.Ctx(ctx).Warn().Int("stale", result.Stale).Msg("Output store holds unlisted ids; run sync to drop them")
		}
	}
	result.AlreadyDone = skip.Len()

	rc := r.runConfig(workers)
	rc.Valid = valid
	rc.Skip = skip

	if r.cfg.DryRun {
		stats := &enhancer.Stats{}
		enhancer.Select(rc, tasks, e, stats)
		result.Stats = stats
		return result, nil
	}

	sink, err := skipset.Open(output)
	if err != nil {
		return nil, err
	}
	stats, runErr := enhancer.Run(ctx, rc, tasks, e, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = err
	}
	result.Stats = stats
	return result, runErr
}

func (r *Runner) runConfig(workers int) enhancer.RunConfig {
	rc := enhancer.DefaultRunConfig()
	rc.Concurrency = workers
	rc.MaxRetries = r.cfg.Retry.MaxRetries
	rc.MaxRateLimitRetries = r.cfg.Retry.MaxRateLimitRetries
	rc.RetryDelay = r.cfg.Retry.Delay
	rc.RateLimitSleep = r.cfg.Retry.RateLimitSleep
	rc.ProgressEvery = r.cfg.Retry.ProgressEvery
	rc.Force = r.cfg.Force
	rc.Limit = r.cfg.Limit
	return rc
}
