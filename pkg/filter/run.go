package filter

import (
	"context"
	"io"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/store"
)

// DefaultTagField is the record field the tag filter cleans by default.
const DefaultTagField = "categories"

// Config tells a filter run which file to rewrite and where its backup goes.
type Config struct {
	// Path is the file filtered in place.
	Path string

	// BackupPath defaults to the sibling "-backup" file.
	BackupPath string

	// BackupPolicy decides what happens when a backup already exists.
	BackupPolicy store.BackupPolicy

	// Blocklist overrides the default list when non-nil.
	Blocklist []string

	// DryRun reports what would change without writing.
	DryRun bool
}

// NameResult reports a name filter run.
type NameResult struct {
	Path         string              `json:"path" yaml:"path"`
	Format       store.Format        `json:"format" yaml:"format"`
	Total        int                 `json:"total" yaml:"total"`
	Kept         int                 `json:"kept" yaml:"kept"`
	Removed      int                 `json:"removed" yaml:"removed"`
	ParseErrors  int                 `json:"parse_errors" yaml:"parse_errors"`
	RemovedNames []string            `json:"removed_names,omitempty" yaml:"removed_names,omitempty"`
	Backup       *store.BackupResult `json:"backup,omitempty" yaml:"backup,omitempty"`
	DryRun       bool                `json:"dry_run" yaml:"dry_run"`
}

// FilterNames drops every record whose "name" contains a blocklisted
// substring. The file may be a JSON array or NDJSON and keeps its format.
// The untouched file is backed up before the filtered one replaces it.
func FilterNames(ctx context.Context, cfg Config) (*NameResult, error) {
	ctx = logging.WithStore(ctx, cfg.Path)
	logger := logging.Ctx(ctx)

	blocklist := cfg.Blocklist
	if blocklist == nil {
		blocklist = DefaultNameBlocklist
	}
	nf := NewNameFilter(blocklist)

	records, format, stats, err := store.ReadAll(ctx, cfg.Path, "")
	if err != nil {
		return nil, err
	}

	result := &NameResult{
		Path:        cfg.Path,
		Format:      format,
		Total:       len(records),
		ParseErrors: stats.ParseErrors,
		DryRun:      cfg.DryRun,
	}

	kept := make([]*catalog.Record, 0, len(records))
	for _, rec := range records {
		name := rec.String("name")
		if word, ok := nf.Match(name); ok {
			result.Removed++
			result.RemovedNames = append(result.RemovedNames, name)
			logger.Debug().Str("name", name).Str("match", word).Msg("Removing record")
			continue
		}
		kept = append(kept, rec)
	}
	result.Kept = len(kept)

	logger.Info().
		Int("total", result.Total).
		Int("removed", result.Removed).
		Int("kept", result.Kept).
		Msg("Filtered names")

	if (result.Removed == 0 && result.ParseErrors == 0) || cfg.DryRun {
		return result, nil
	}

	backup, err := store.Backup(cfg.Path, cfg.BackupPath, cfg.BackupPolicy)
	if err != nil {
		return nil, err
	}
	result.Backup = &backup

	if err := store.WriteAll(cfg.Path, kept, format); err != nil {
		return nil, err
	}
	return result, nil
}

// TagResult reports a tag filter run.
type TagResult struct {
	Path           string              `json:"path" yaml:"path"`
	Field          string              `json:"field" yaml:"field"`
	Records        int                 `json:"records" yaml:"records"`
	RecordsChanged int                 `json:"records_changed" yaml:"records_changed"`
	TagsRemoved    int                 `json:"tags_removed" yaml:"tags_removed"`
	ParseErrors    int                 `json:"parse_errors" yaml:"parse_errors"`
	Backup         *store.BackupResult `json:"backup,omitempty" yaml:"backup,omitempty"`
	DryRun         bool                `json:"dry_run" yaml:"dry_run"`
}

// FilterTags removes blocklisted entries from the string list stored under
// field in every record of an NDJSON store. Records are never dropped.
// Untouched records are copied byte for byte.
func FilterTags(ctx context.Context, cfg Config, field string) (*TagResult, error) {
	if field == "" {
		field = DefaultTagField
	}
	ctx = logging.WithStore(ctx, cfg.Path)
	logger := logging.Ctx(ctx)

	blocklist := cfg.Blocklist
	if blocklist == nil {
		blocklist = DefaultTagBlocklist
	}
	tf := NewTagFilter(blocklist)

	result := &TagResult{Path: cfg.Path, Field: field, DryRun: cfg.DryRun}

	clean := func(e store.Entry) ([]byte, int, error) {
		if !e.Record.Has(field) {
			return e.Raw, 0, nil
		}
		kept, dropped := tf.Clean(e.Record.Strings(field))
		if len(dropped) == 0 {
			return e.Raw, 0, nil
		}
		if err := e.Record.Set(field, kept); err != nil {
			return nil, 0, err
		}
		line, err := e.Record.MarshalJSON()
		return line, len(dropped), err
	}

	// First pass counts, so a clean store is never rewritten.
	stats, err := store.Scan(ctx, cfg.Path, "", func(e store.Entry) error {
		result.Records++
		_, dropped, err := clean(e)
		if dropped > 0 {
			result.RecordsChanged++
			result.TagsRemoved += dropped
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	result.ParseErrors = stats.ParseErrors

	logger.Info().
		Str("field", field).
		Int("records", result.Records).
		Int("changed", result.RecordsChanged).
		Int("tags_removed", result.TagsRemoved).
		Msg("Filtered tags")

	if (result.RecordsChanged == 0 && result.ParseErrors == 0) || cfg.DryRun {
		return result, nil
	}

	backup, err := store.Backup(cfg.Path, cfg.BackupPath, cfg.BackupPolicy)
	if err != nil {
		return nil, err
	}
	result.Backup = &backup

	quiet := logging.WithLogger(ctx, logging.NewNopLogger())
	err = store.WriteAtomic(cfg.Path, func(w io.Writer) error {
		_, err := store.Scan(quiet, cfg.Path, "", func(e store.Entry) error {
			line, _, err := clean(e)
			if err != nil {
				return err
			}
			return store.WriteLine(w, line)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
