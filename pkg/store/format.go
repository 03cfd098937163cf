package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/errors"
	"github.com/agentstation/gamesync/pkg/logging"
)

// Format is the on-disk layout of a record file.
type Format string

const (
	// FormatNDJSON is one JSON object per line.
	FormatNDJSON Format = "ndjson"

	// FormatJSONArray is a single indented JSON array of objects.
	FormatJSONArray Format = "json"
)

// DetectFormat peeks at the first non-space byte: '[' means a JSON array,
// anything else is treated as NDJSON.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", errors.NewMissingInputError("store", path, err)
		}
		return "", errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return FormatNDJSON, nil
		}
		if err != nil {
			return "", errors.WrapIO("read", path, err)
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return FormatJSONArray, nil
		default:
			return FormatNDJSON, nil
		}
	}
}

// ReadArray streams a JSON array of objects. Elements that are not objects,
// or lack a valid id when idField is set, are counted and skipped; a file
// that is not an array at all is a ParseError.
func ReadArray(ctx context.Context, path, idField string, fn func(Entry) error) (Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return stats, errors.NewMissingInputError("store", path, err)
		}
		return stats, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(bufio.NewReader(f))
	tok, err := dec.Token()
	if err != nil {
		return stats, errors.NewParseError("json", path, 0, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return stats, errors.NewParseError("json", path, 0, fmt.Errorf("expected array, got %v", tok))
	}

	logger := logging.Ctx(ctx)
	for index := 1; dec.More(); index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return stats, errors.NewParseError("json", path, index, err)
		}
		stats.Lines++

		entry, perr := parseEntry(path, index, raw, idField)
		if perr != nil {
			stats.ParseErrors++
			logger.Warn().Err(perr).Str("path", path).Int("index", index).Msg("Skipping malformed entry")
			continue
		}
		stats.Records++
		if err := fn(entry); err != nil {
			return stats, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return stats, errors.NewParseError("json", path, 0, err)
	}
	return stats, nil
}

// ReadAll loads every record of a file in either format.
func ReadAll(ctx context.Context, path, idField string) ([]*catalog.Record, Format, Stats, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, "", Stats{}, err
	}

	var records []*catalog.Record
	collect := func(e Entry) error {
		records = append(records, e.Record)
		return nil
	}

	var stats Stats
	if format == FormatJSONArray {
		stats, err = ReadArray(ctx, path, idField, collect)
	} else {
		stats, err = Scan(ctx, path, idField, collect)
	}
	return records, format, stats, err
}

// WriteAll atomically replaces path with records in the given format.
func WriteAll(path string, records []*catalog.Record, format Format) error {
	return WriteAtomic(path, func(w io.Writer) error {
		if format == FormatJSONArray {
			return writeArray(w, records)
		}
		for _, rec := range records {
			raw, err := rec.MarshalJSON()
			if err != nil {
				return err
			}
			if err := WriteLine(w, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeArray(w io.Writer, records []*catalog.Record) error {
	if records == nil {
		records = []*catalog.Record{}
	}
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
