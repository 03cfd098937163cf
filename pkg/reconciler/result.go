package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/gamesync/pkg/store"
)

// Result represents the outcome of reconciling one store.
type Result struct {
	// Path is the store that was reconciled.
	Path string `json:"path" yaml:"path"`

	// Total is the number of non-blank lines read.
	Total int `json:"total" yaml:"total"`

	// Kept is the number of records in the cleaned store.
	Kept int `json:"kept" yaml:"kept"`

	// Removed is the number of obsolete records dropped.
	Removed int `json:"removed" yaml:"removed"`

	// Duplicates is the number of earlier records superseded by a later one with the same id.
	Duplicates int `json:"duplicates" yaml:"duplicates"`

	// ParseErrors is the number of malformed lines dropped.
	ParseErrors int `json:"parse_errors" yaml:"parse_errors"`

	// RemovedIDs lists the obsolete ids in ascending order.
	RemovedIDs []int64 `json:"removed_ids,omitempty" yaml:"removed_ids,omitempty"`

	// Backup describes the pre-reconcile copy, if one was needed.
	Backup *store.BackupResult `json:"backup,omitempty" yaml:"backup,omitempty"`

	// Changed reports whether the store differs from a cleaned store.
	Changed bool `json:"changed" yaml:"changed"`

	Metadata ResultMetadata `json:"metadata" yaml:"metadata"`
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	DryRun    bool          `json:"dry_run" yaml:"dry_run"`
}

// HasChanges returns true if the store needed rewriting.
func (r *Result) HasChanges() bool {
	return r.Changed
}

// WasApplied returns true if the store was rewritten.
func (r *Result) WasApplied() bool {
	return r.Changed && !r.Metadata.DryRun
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	counts := fmt.Sprintf("%d kept, %d removed, %d duplicates, %d parse errors", r.Kept, r.Removed, r.Duplicates, r.ParseErrors)
	switch {
	case !r.Changed:
		return fmt.Sprintf("%s already in sync (%d records)", r.Path, r.Kept)
	case r.Metadata.DryRun:
		return fmt.Sprintf("Dry run for %s: %s", r.Path, counts)
	default:
		return fmt.Sprintf("Reconciled %s: %s", r.Path, counts)
	}
}

// NewResult creates a new result with defaults.
func NewResult(path string) *Result {
	return &Result{
		Path: path,
		Metadata: ResultMetadata{
			StartTime: time.Now(),
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}
