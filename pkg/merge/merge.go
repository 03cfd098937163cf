// Package merge joins fields from a secondary store into a primary store by id.
//
// The secondary store is loaded into an id mapping first, with the last
// record for an id winning. The primary store is then streamed once and every
// matching record gets the mapped fields overwritten or added. Records without
// a match are copied through unchanged. The result replaces the primary store
// through a temp file and a rename.
package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"dario.cat/mergo"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
	"github.com/agentstation/gamesync/pkg/store"
)

// FieldMapping copies field From of a secondary record into field To of the
// primary record.
type FieldMapping struct {
	From string `json:"from" yaml:"from" mapstructure:"from"`
	To   string `json:"to" yaml:"to" mapstructure:"to"`

	// Default is used when the secondary record lacks From. Without a
	// default the field is left alone.
	Default json.RawMessage `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
}

// Patch holds the encoded values to write into one primary record.
type Patch map[string]json.RawMessage

// Config describes one join.
type Config struct {
	// Primary is the store that is rewritten.
	Primary string

	// Secondary supplies the fields.
	Secondary string

	// IDField is the join key in both stores.
	IDField string

	Fields []FieldMapping

	// Backup copies the primary store aside before it is replaced.
	Backup       bool
	BackupPath   string
	BackupPolicy store.BackupPolicy

	DryRun bool
}

// Result reports a join.
type Result struct {
	Primary              string              `json:"primary" yaml:"primary"`
	Secondary            string              `json:"secondary" yaml:"secondary"`
	Patches              int                 `json:"patches" yaml:"patches"`
	Records              int                 `json:"records" yaml:"records"`
	Matched              int                 `json:"matched" yaml:"matched"`
	Unmatched            int                 `json:"unmatched" yaml:"unmatched"`
	ParseErrors          int                 `json:"parse_errors" yaml:"parse_errors"`
	SecondaryParseErrors int                 `json:"secondary_parse_errors" yaml:"secondary_parse_errors"`
	Backup               *store.BackupResult `json:"backup,omitempty" yaml:"backup,omitempty"`
	DryRun               bool                `json:"dry_run" yaml:"dry_run"`
}

func (c *Config) validate() error {
	if c.Primary == "" {
		return errors.NewValidationError("primary", c.Primary, "primary store is required")
	}
	if c.Secondary == "" {
		return errors.NewValidationError("secondary", c.Secondary, "secondary store is required")
	}
	if len(c.Fields) == 0 {
		return errors.NewValidationError("fields", nil, "at least one field mapping is required")
	}
	for _, f := range c.Fields {
		if f.From == "" || f.To == "" {
			return errors.NewValidationError("fields", fmt.Sprintf("%s->%s", f.From, f.To), "mapping needs both from and to")
		}
	}
	if c.IDField == "" {
		c.IDField = constants.IDField
	}
	return nil
}

// Join merges the mapped fields of cfg.Secondary into cfg.Primary.
func Join(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ctx = logging.WithStore(ctx, cfg.Primary)
	logger := logging.Ctx(ctx)

	patches, secStats, err := loadPatches(ctx, cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Primary:              cfg.Primary,
		Secondary:            cfg.Secondary,
		Patches:              patches.Len(),
		SecondaryParseErrors: secStats.ParseErrors,
		DryRun:               cfg.DryRun,
	}

	apply := func(e store.Entry) ([]byte, bool, error) {
		id, err := e.Record.ID(cfg.IDField)
		if err != nil {
			return e.Raw, false, nil
		}
		patch, ok := patches.Get(id)
		if !ok {
			return e.Raw, false, nil
		}
		if err := applyPatch(e.Record, patch, cfg.Fields); err != nil {
			return nil, false, fmt.Errorf("merging id %d: %w", id, err)
		}
		line, err := e.Record.MarshalJSON()
		return line, true, err
	}

	// Count first so an unmatched run never rewrites the primary store.
	stats, err := store.Scan(ctx, cfg.Primary, "", func(e store.Entry) error {
		_, matched, err := apply(e)
		if err != nil {
			return err
		}
		if matched {
			result.Matched++
		} else {
			result.Unmatched++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Records = stats.Records
	result.ParseErrors = stats.ParseErrors

	logger.Info().
		Str("secondary", cfg.Secondary).
		Int("patches", result.Patches).
		Int("matched", result.Matched).
		Int("unmatched", result.Unmatched).
		Msg("Joined stores")

	if (result.Matched == 0 && result.ParseErrors == 0) || cfg.DryRun {
		return result, nil
	}

	if cfg.Backup {
		backup, err := store.Backup(cfg.Primary, cfg.BackupPath, cfg.BackupPolicy)
		if err != nil {
			return nil, err
		}
		result.Backup = &backup
	}

	quiet := logging.WithLogger(ctx, logging.NewNopLogger())
	err = store.WriteAtomic(cfg.Primary, func(w io.Writer) error {
		_, err := store.Scan(quiet, cfg.Primary, "", func(e store.Entry) error {
			line, _, err := apply(e)
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

// loadPatches builds the id to patch mapping from the secondary store.
// Records that supply none of the mapped fields contribute nothing.
func loadPatches(ctx context.Context, cfg Config) (*catalog.IDMap[Patch], store.Stats, error) {
	patches := catalog.NewIDMap[Patch]()
	logger := logging.Ctx(ctx)

	stats, err := store.Scan(ctx, cfg.Secondary, cfg.IDField, func(e store.Entry) error {
		patch := make(Patch, len(cfg.Fields))
		for _, f := range cfg.Fields {
			raw, ok := e.Record.Raw(f.From)
			if !ok || isBlank(raw) {
				if f.Default == nil {
					continue
				}
				raw = f.Default
			}
			patch[f.To] = raw
		}
		if len(patch) == 0 {
			return nil
		}
		if patches.Put(e.ID, patch) {
			logger.Debug().Int64("id", e.ID).Msg("Later secondary record replaces earlier one")
		}
		return nil
	})
	return patches, stats, err
}

// applyPatch writes the patch into rec. Fields keep their position when they
// already exist and are appended in mapping order otherwise.
func applyPatch(rec *catalog.Record, patch Patch, fields []FieldMapping) error {
	current := make(Patch, len(patch))
	for key := range patch {
		if raw, ok := rec.Raw(key); ok {
			current[key] = raw
		}
	}
	if err := mergo.Merge(&current, patch, mergo.WithOverride); err != nil {
		return err
	}
	for _, f := range fields {
		if raw, ok := current[f.To]; ok {
			rec.SetRaw(f.To, raw)
		}
	}
	return nil
}

func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`))
}
