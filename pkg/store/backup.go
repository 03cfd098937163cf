package store

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

// BackupPolicy decides what happens when a backup already exists.
type BackupPolicy string

const (
	// BackupSkip keeps the existing backup and does not write a new one.
	BackupSkip BackupPolicy = "skip"

	// BackupVersioned writes a new timestamped backup next to the old one.
	BackupVersioned BackupPolicy = "versioned"

	// BackupFail refuses to continue when a backup exists.
	BackupFail BackupPolicy = "fail"
)

// ParseBackupPolicy validates a policy name; the empty string means BackupSkip.
func ParseBackupPolicy(s string) (BackupPolicy, error) {
	switch p := BackupPolicy(strings.ToLower(s)); p {
	case "":
		return BackupSkip, nil
	case BackupSkip, BackupVersioned, BackupFail:
		return p, nil
	default:
		return "", errors.NewValidationError("backup_policy", s, "must be skip, versioned or fail")
	}
}

// BackupResult reports where the backup lives and whether this call wrote it.
type BackupResult struct {
	Path    string `json:"path" yaml:"path"`
	Created bool   `json:"created" yaml:"created"`
}

// DefaultBackupPath returns the sibling backup path for a store,
// e.g. data/raw-desc.ndjson -> data/raw-desc-backup.ndjson.
func DefaultBackupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-backup" + ext
}

// Backup copies src to dst unless the policy says otherwise.
// An existing backup is never overwritten.
func Backup(src, dst string, policy BackupPolicy) (BackupResult, error) {
	if dst == "" {
		dst = DefaultBackupPath(src)
	}
	if policy == "" {
		policy = BackupSkip
	}

	if _, err := os.Stat(dst); err == nil {
		switch policy {
		case BackupSkip:
			return BackupResult{Path: dst}, nil
		case BackupFail:
			return BackupResult{Path: dst}, fmt.Errorf("%s: %w", dst, errors.ErrBackupExists)
		case BackupVersioned:
			dst = versionedPath(dst, time.Now())
		}
	} else if !stderrors.Is(err, os.ErrNotExist) {
		return BackupResult{}, errors.WrapIO("stat", dst, err)
	}

	in, err := os.Open(src)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return BackupResult{}, errors.NewMissingInputError("store", src, err)
		}
		return BackupResult{}, errors.WrapIO("open", src, err)
	}
	defer func() { _ = in.Close() }()

	err = WriteAtomic(dst, func(w io.Writer) error {
		if _, err := io.Copy(w, in); err != nil {
			return errors.WrapIO("backup", src, err)
		}
		return nil
	})
	if err != nil {
		return BackupResult{}, err
	}
	return BackupResult{Path: dst, Created: true}, nil
}

func versionedPath(path string, now time.Time) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext) + "-" + now.Format(constants.TimeFormatFilename)
	candidate := base + ext
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); stderrors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
	}
}
