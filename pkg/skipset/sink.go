package skipset

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
)

// Sink is an append-only NDJSON output shared by every worker of a run.
// Each Write is serialized and reaches the OS before Write returns, so an
// interrupted run keeps every record it reported as written.
type Sink struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	written int
}

// Open opens path for appending, creating it and its parent directories.
// A store whose last line is unterminated, left by a crash or another tool,
// gets a newline first so the torn line stays a single malformed line and
// the next record starts on a line of its own.
func Open(path string) (*Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, constants.FilePermissions)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	if err := terminateLastLine(f); err != nil {
		_ = f.Close()
		return nil, errors.WrapIO("repair", path, err)
	}
	return &Sink{path: path, f: f}, nil
}

func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

// Path returns the file the sink appends to.
func (s *Sink) Path() string {
	return s.path
}

// Write appends rec as one line.
func (s *Sink) Write(rec *catalog.Record) error {
	raw, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	line := make([]byte, 0, len(raw)+1)
	line = append(line, raw...)
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.WrapIO("write", s.path, os.ErrClosed)
	}
	// A single write call per line; O_APPEND keeps lines whole.
	if _, err := s.f.Write(line); err != nil {
		return errors.WrapIO("write", s.path, err)
	}
	s.written++
	return nil
}

// Written returns how many records this sink has appended.
func (s *Sink) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close syncs and closes the file. It is safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	f := s.f
	s.f = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.WrapIO("sync", s.path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", s.path, err)
	}
	return nil
}
