package jobs

import (
	"context"
	"os"

	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/filter"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/merge"
	"github.com/agentstation/gamesync/pkg/reconciler"
	"github.com/agentstation/gamesync/pkg/store"
)

// FilterNames drops blocklisted titles from the master list.
func (r *Runner) FilterNames(ctx context.Context) (*filter.NameResult, error) {
	lists, err := filter.LoadLists(r.cfg.FilterList)
	if err != nil {
		return nil, err
	}
	return filter.FilterNames(ctx, r.filterConfig(r.cfg.Paths.Master, lists.Names))
}

// FilterTags drops blocklisted categories from the games store.
func (r *Runner) FilterTags(ctx context.Context) (*filter.TagResult, error) {
	lists, err := filter.LoadLists(r.cfg.FilterList)
	if err != nil {
		return nil, err
	}
	return filter.FilterTags(ctx, r.filterConfig(r.cfg.Paths.Games, lists.Tags), filter.DefaultTagField)
}

func (r *Runner) filterConfig(path string, blocklist []string) filter.Config {
	return filter.Config{
		Path:         path,
		BackupPolicy: r.cfg.BackupPolicy,
		Blocklist:    blocklist,
		DryRun:       r.cfg.DryRun,
	}
}

// Merge runs one of the store joins: merge-genres or merge-summary.
func (r *Runner) Merge(ctx context.Context, job string) (*merge.Result, error) {
	var cfg merge.Config
	switch job {
	case JobMergeGenres:
		cfg = merge.GenresPreset(r.cfg.Paths.Games, r.cfg.Paths.RawDesc)
	case JobMergeSummary:
		cfg = merge.SummaryPreset(r.cfg.Paths.Summaries, r.cfg.Paths.Games)
	default:
		return nil, errors.NewValidationError("merge", job, "unknown join")
	}
	cfg.BackupPolicy = r.cfg.BackupPolicy
	cfg.DryRun = r.cfg.DryRun
	return merge.Join(ctx, cfg)
}

// SyncResult reports a reconciliation of every derived store.
type SyncResult struct {
	Master      string               `json:"master" yaml:"master"`
	MasterIDs   int                  `json:"master_ids" yaml:"master_ids"`
	Stores      []*reconciler.Result `json:"stores" yaml:"stores"`
	Missing     []string             `json:"missing,omitempty" yaml:"missing,omitempty"`
	Removed     int                  `json:"removed" yaml:"removed"`
	ParseErrors int                  `json:"parse_errors" yaml:"parse_errors"`
	DryRun      bool                 `json:"dry_run" yaml:"dry_run"`
}

// Sync removes every record whose id the master list no longer holds from
// each derived store. Stores that do not exist yet are reported and left
// alone. An empty master list is refused since it would empty every store.
func (r *Runner) Sync(ctx context.Context) (*SyncResult, error) {
	logger := logging.Ctx(ctx)

	master, err := store.LoadMaster(ctx, r.cfg.Paths.Master)
	if err != nil {
		return nil, err
	}
	if len(master.IDs) == 0 {
		return nil, errors.NewValidationError("master", r.cfg.Paths.Master, "holds no ids, refusing to empty the derived stores")
	}

	result := &SyncResult{Master: r.cfg.Paths.Master, MasterIDs: len(master.IDs), DryRun: r.cfg.DryRun}
	for _, path := range r.cfg.DerivedStores() {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				logger.Warn().Str("store", path).Msg("Store not found, skipping")
				result.Missing = append(result.Missing, path)
				continue
			}
			return result, errors.WrapIO("stat", path, err)
		}

		rec, err := reconciler.New(
			reconciler.WithIDField(constants.IDField),
			reconciler.WithBackup(store.DefaultBackupPath(path), r.cfg.BackupPolicy),
			reconciler.WithDryRun(r.cfg.DryRun),
		)
		if err != nil {
			return result, err
		}
		res, err := rec.Reconcile(ctx, path, master.IDs)
		if err != nil {
			return result, err
		}
		result.Stores = append(result.Stores, res)
		result.Removed += res.Removed
		result.ParseErrors += res.ParseErrors
	}

	logger.Info().
		Int("stores", len(result.Stores)).
		Int("missing", len(result.Missing)).
		Int("removed", result.Removed).
		Msg("Sync complete")
	return result, nil
}
