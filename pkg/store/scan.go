// Package store reads and writes the NDJSON and JSON-array files the jobs
// operate on. Reads stream line by line and skip malformed lines; every full
// rewrite goes through a temp file in the same directory followed by a rename,
// so an interrupted job never leaves a half-written store behind.
package store

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
)

// Entry is one parsed line of an NDJSON store.
type Entry struct {
	// Line is the 1-based line number.
	Line int

	// Raw is the line without its trailing newline.
	Raw []byte

	// Record is the decoded object.
	Record *catalog.Record

	// ID is the record id, zero when no id field was requested.
	ID int64
}

// Stats counts what a scan saw.
type Stats struct {
	Lines       int `json:"lines" yaml:"lines"`
	Records     int `json:"records" yaml:"records"`
	ParseErrors int `json:"parse_errors" yaml:"parse_errors"`
}

// Scan streams an NDJSON store and calls fn for every well-formed record.
// Blank lines are ignored. Lines that are not JSON objects, or that lack a
// valid id under idField when idField is set, are logged and counted.
// A missing file is reported as a MissingInputError.
func Scan(ctx context.Context, path, idField string, fn func(Entry) error) (Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return stats, errors.NewMissingInputError("store", path, err)
		}
		return stats, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	logger := logging.Ctx(ctx)
	reader := bufio.NewReaderSize(f, 1<<20)
	lineNo := 0

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		line, tooLong, readErr := readLine(reader)
		if readErr != nil && readErr != io.EOF {
			return stats, errors.WrapIO("read", path, readErr)
		}
		if readErr == io.EOF && line == nil && !tooLong {
			break
		}
		lineNo++

		if tooLong {
			stats.Lines++
			stats.ParseErrors++
			perr := errors.NewParseError("ndjson", path, lineNo, bufio.ErrTooLong)
			logger.Warn().Err(perr).Str("path", path).Int("line", lineNo).Msg("Skipping oversized line")
			if readErr == io.EOF {
				break
			}
			continue
		}

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			if readErr == io.EOF {
				break
			}
			continue
		}
		stats.Lines++

		entry, perr := parseEntry(path, lineNo, trimmed, idField)
		if perr != nil {
			stats.ParseErrors++
			logger.Warn().Err(perr).Str("path", path).Int("line", lineNo).Msg("Skipping malformed line")
		} else {
			stats.Records++
			if err := fn(entry); err != nil {
				return stats, err
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	return stats, nil
}

// ScanOptional behaves like Scan but treats a missing file as empty.
func ScanOptional(ctx context.Context, path, idField string, fn func(Entry) error) (Stats, error) {
	stats, err := Scan(ctx, path, idField, fn)
	if errors.IsMissingInput(err) {
		return Stats{}, nil
	}
	return stats, err
}

// maxLineSize is a variable so tests can lower it.
var maxLineSize = constants.MaxLineSize

// readLine returns one line without the newline. It returns a nil line
// together with io.EOF only when nothing is left to read. A line longer
// than maxLineSize is consumed up to its newline and reported
// through tooLong with a nil line.
func readLine(r *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, rerr := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(line) > maxLineSize {
				tooLong, line = true, nil
			}
		}
		switch rerr {
		case nil:
			if tooLong {
				return nil, true, nil
			}
			return bytes.TrimRight(line, "\r\n"), false, nil
		case bufio.ErrBufferFull:
			continue
		case io.EOF:
			if tooLong {
				return nil, true, io.EOF
			}
			if len(line) == 0 {
				return nil, false, io.EOF
			}
			return bytes.TrimRight(line, "\r\n"), false, io.EOF
		default:
			return nil, false, rerr
		}
	}
}

func parseEntry(path string, lineNo int, raw []byte, idField string) (Entry, error) {
	rec, err := catalog.ParseRecord(raw)
	if err != nil {
		return Entry{}, errors.NewParseError("ndjson", path, lineNo, err)
	}
	entry := Entry{Line: lineNo, Raw: raw, Record: rec}
	if idField != "" {
		id, err := rec.ID(idField)
		if err != nil {
			return Entry{}, errors.NewParseError("ndjson", path, lineNo, err)
		}
		entry.ID = id
	}
	return entry, nil
}
