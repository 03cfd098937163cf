package reconciler

import (
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/store"
)

// Options configures a reconciler.
type options struct {
	idField      string
	backupPath   string
	backupPolicy store.BackupPolicy
	dryRun       bool
}

func defaultOptions() *options {
	return &options{
		idField:      constants.IDField,
		backupPolicy: store.BackupSkip,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithIDField sets the field that holds each record's id.
func WithIDField(field string) Option {
	return func(o *options) error {
		if field == "" {
			return &errors.ValidationError{
				Field:   "id_field",
				Message: "cannot be empty",
			}
		}
		o.idField = field
		return nil
	}
}

// WithBackup sets where the pre-reconcile copy is written and what happens
// when a backup already exists. An empty path selects the sibling default.
func WithBackup(path string, policy store.BackupPolicy) Option {
	return func(o *options) error {
		if _, err := store.ParseBackupPolicy(string(policy)); err != nil {
			return err
		}
		o.backupPath = path
		if policy != "" {
			o.backupPolicy = policy
		}
		return nil
	}
}

// WithDryRun reports what would change without writing anything.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}
