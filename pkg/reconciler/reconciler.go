// Package reconciler prunes derived stores so they match the master list.
//
// The master list always wins: a record is kept if and only if its id is in
// the valid-id set, whatever the existing output contains. Within a store the
// last record for an id wins and the cleaned store keeps the order of those
// last occurrences. A store that is already clean is not touched at all, so a
// second run against an unchanged master list writes nothing.
package reconciler

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/store"
)

// Reconciler cleans derived stores against a valid-id set.
type Reconciler interface {
	// Reconcile rewrites the store at path so it holds exactly one record
	// per id of valid that it already contained.
	Reconcile(ctx context.Context, path string, valid catalog.IDSet) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	idField      string
	backupPath   string
	backupPolicy store.BackupPolicy
	dryRun       bool
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		idField:      options.idField,
		backupPath:   options.backupPath,
		backupPolicy: options.backupPolicy,
		dryRun:       options.dryRun,
	}, nil
}

// plan is what the first pass decides about a store.
type plan struct {
	// lastLine maps each valid id to the line of its final occurrence.
	lastLine map[int64]int
	removed  catalog.IDSet
}

// Reconcile performs reconciliation with a clean step-by-step flow.
func (r *reconciler) Reconcile(ctx context.Context, path string, valid catalog.IDSet) (*Result, error) {
	if valid == nil {
		return nil, &errors.ValidationError{Field: "valid", Message: "valid-id set cannot be nil"}
	}

	ctx = logging.WithStore(ctx, path)
	logger := logging.Ctx(ctx)
	result := NewResult(path)
	result.Metadata.DryRun = r.dryRun
	defer result.Finalize()

	// Step 1: Partition the store into valid and obsolete records
	p, err := r.partition(ctx, path, valid, result)
	if err != nil {
		return nil, err
	}

	result.Changed = result.Removed > 0 || result.Duplicates > 0 || result.ParseErrors > 0
	r.logPlan(logger, result)

	if !result.Changed {
		logger.Info().Int("records", result.Kept).Msg("Store already in sync")
		return result, nil
	}
	if r.dryRun {
		logger.Info().Msg("Dry run, store left unchanged")
		return result, nil
	}

	// Step 2: Back up the untouched store
	backup, err := store.Backup(path, r.backupPath, r.backupPolicy)
	if err != nil {
		return nil, err
	}
	result.Backup = &backup
	if backup.Created {
		logger.Info().Str("backup", backup.Path).Msg("Backup written")
	} else {
		logger.Info().Str("backup", backup.Path).Msg("Backup already exists, keeping it")
	}

	// Step 3: Stream the surviving lines into a temp file and swap it in
	if err := r.rewrite(ctx, path, p); err != nil {
		return nil, err
	}

	logger.Info().
		Int("kept", result.Kept).
		Int("removed", result.Removed).
		Msg("Store reconciled")

	return result, nil
}

func (r *reconciler) partition(ctx context.Context, path string, valid catalog.IDSet, result *Result) (*plan, error) {
	p := &plan{
		lastLine: make(map[int64]int),
		removed:  make(catalog.IDSet),
	}

	stats, err := store.Scan(ctx, path, r.idField, func(e store.Entry) error {
		if !valid.Contains(e.ID) {
			result.Removed++
			p.removed.Add(e.ID)
			return nil
		}
		if _, seen := p.lastLine[e.ID]; seen {
			result.Duplicates++
		}
		p.lastLine[e.ID] = e.Line
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Total = stats.Lines
	result.ParseErrors = stats.ParseErrors
	result.Kept = len(p.lastLine)
	result.RemovedIDs = p.removed.Sorted()
	return p, nil
}

func (r *reconciler) rewrite(ctx context.Context, path string, p *plan) error {
	// Malformed lines were already reported by the first pass.
	quiet := logging.WithLogger(ctx, logging.NewNopLogger())
	return store.WriteAtomic(path, func(w io.Writer) error {
		_, err := store.Scan(quiet, path, r.idField, func(e store.Entry) error {
			if line, ok := p.lastLine[e.ID]; !ok || line != e.Line {
				return nil
			}
			return store.WriteLine(w, e.Raw)
		})
		return err
	})
}

func (r *reconciler) logPlan(logger *zerolog.Logger, result *Result) {
	logger.Info().
		Int("total", result.Total).
		Int("valid", result.Kept).
		Int("obsolete", result.Removed).
		Int("duplicates", result.Duplicates).
		Int("parse_errors", result.ParseErrors).
		Msg("Compared store with master list")

	for _, id := range result.RemovedIDs {
		logger.Debug().Int64("id", id).Msg("Removing obsolete record")
	}
}
