package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gamesync/pkg/catalog"
	pkgerrors "github.com/agentstation/gamesync/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestScanCountsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw-desc.ndjson")
	writeFile(t, path, `{"steam_id":1,"name":"A"}
not json

{"name":"no id"}
{"steam_id":2,"name":"B"}
{"steam_id":3,"name":"C"}`)

	var ids []int64
	var lines []int
	stats, err := Scan(context.Background(), path, "steam_id", func(e Entry) error {
		ids = append(ids, e.ID)
		lines = append(lines, e.Line)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []int{1, 5, 6}, lines)
	assert.Equal(t, Stats{Lines: 5, Records: 3, ParseErrors: 2}, stats)
}

func TestScanSkipsOversizedLine(t *testing.T) {
	prev := maxLineSize
	maxLineSize = 64
	t.Cleanup(func() { maxLineSize = prev })

	path := filepath.Join(t.TempDir(), "steam-games-data-vect.ndjson")
	long := `{"steam_id":2,"vector_embedding":[` + strings.Repeat("0.125,", 40) + `0]}`
	writeFile(t, path, `{"steam_id":1}`+"\n"+long+"\n"+`{"steam_id":3}`+"\n"+long)

	var ids []int64
	var lines []int
	stats, err := Scan(context.Background(), path, "steam_id", func(e Entry) error {
		ids = append(ids, e.ID)
		lines = append(lines, e.Line)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, ids)
	assert.Equal(t, []int{1, 3}, lines)
	assert.Equal(t, Stats{Lines: 4, Records: 2, ParseErrors: 2}, stats)
}

func TestScanMissingFile(t *testing.T) {
	_, err := Scan(context.Background(), filepath.Join(t.TempDir(), "nope.ndjson"), "steam_id", func(Entry) error { return nil })
	assert.True(t, pkgerrors.IsMissingInput(err))

	stats, err := ScanOptional(context.Background(), filepath.Join(t.TempDir(), "nope.ndjson"), "steam_id", func(Entry) error { return nil })
	assert.NoError(t, err)
	assert.Zero(t, stats.Records)
}

func TestScanStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.ndjson")
	writeFile(t, path, "{\"steam_id\":1}\n{\"steam_id\":2}\n")

	boom := errors.New("boom")
	calls := 0
	_, err := Scan(context.Background(), path, "steam_id", func(Entry) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestScanKeepsRawBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.ndjson")
	line := `{"steam_id":1,  "name":"Ñandú"}`
	writeFile(t, path, line+"\r\n")

	var raw string
	_, err := Scan(context.Background(), path, "steam_id", func(e Entry) error {
		raw = string(e.Raw)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, line, raw)
}

func TestWriteAtomicLeavesOriginalOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "games.ndjson")
	writeFile(t, path, "original\n")

	err := WriteAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("killed mid-write")
	})
	require.Error(t, err)

	assert.Equal(t, "original\n", readFile(t, path))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be removed")
}

func TestWriteAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "games.ndjson")
	require.NoError(t, WriteAtomic(path, func(w io.Writer) error {
		return WriteLine(w, []byte(`{"steam_id":1}`))
	}))
	assert.Equal(t, "{\"steam_id\":1}\n", readFile(t, path))
}

func TestBackupPolicies(t *testing.T) {
	t.Run("creates when absent", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "raw-desc.ndjson")
		writeFile(t, src, "v1\n")

		res, err := Backup(src, "", BackupSkip)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.Equal(t, filepath.Join(dir, "raw-desc-backup.ndjson"), res.Path)
		assert.Equal(t, "v1\n", readFile(t, res.Path))
	})

	t.Run("skip keeps existing backup", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "s.ndjson")
		dst := filepath.Join(dir, "s.bak")
		writeFile(t, src, "new\n")
		writeFile(t, dst, "old\n")

		res, err := Backup(src, dst, BackupSkip)
		require.NoError(t, err)
		assert.False(t, res.Created)
		assert.Equal(t, "old\n", readFile(t, dst))
	})

	t.Run("fail refuses existing backup", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "s.ndjson")
		dst := filepath.Join(dir, "s.bak")
		writeFile(t, src, "new\n")
		writeFile(t, dst, "old\n")

		_, err := Backup(src, dst, BackupFail)
		assert.ErrorIs(t, err, pkgerrors.ErrBackupExists)
		assert.Equal(t, "old\n", readFile(t, dst))
	})

	t.Run("versioned writes a new file", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "s.ndjson")
		dst := filepath.Join(dir, "s-backup.ndjson")
		writeFile(t, src, "new\n")
		writeFile(t, dst, "old\n")

		res, err := Backup(src, dst, BackupVersioned)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.NotEqual(t, dst, res.Path)
		assert.Equal(t, "old\n", readFile(t, dst))
		assert.Equal(t, "new\n", readFile(t, res.Path))
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := Backup(filepath.Join(t.TempDir(), "none"), "", BackupSkip)
		assert.True(t, pkgerrors.IsMissingInput(err))
	})
}

func TestParseBackupPolicy(t *testing.T) {
	p, err := ParseBackupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, BackupSkip, p)

	p, err = ParseBackupPolicy("Versioned")
	require.NoError(t, err)
	assert.Equal(t, BackupVersioned, p)

	_, err = ParseBackupPolicy("overwrite")
	assert.True(t, pkgerrors.IsValidationError(err))
}

func TestLoadMaster(t *testing.T) {
	t.Run("dedups and keeps last name", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.json")
		writeFile(t, path, `[
			{"appid": 1, "name": "A"},
			{"appid": "2", "name": "B"},
			{"appid": 1, "name": "A2"},
			{"name": "no id"},
			{"appid": 0, "name": "zero"}
		]`)

		m, err := LoadMaster(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, m.IDs.Sorted())
		assert.Equal(t, "A2", m.Name(1))
		assert.Equal(t, 1, m.Duplicates)
		assert.Equal(t, 2, m.Invalid)
		assert.Len(t, m.Records, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMaster(context.Background(), filepath.Join(t.TempDir(), "none.json"))
		assert.True(t, pkgerrors.IsMissingInput(err))
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.json")
		writeFile(t, path, `{"appid": 1}`)
		_, err := LoadMaster(context.Background(), path)
		assert.True(t, pkgerrors.IsParse(err))

		writeFile(t, path, `[{"appid": 1}, {"appid": `)
		_, err = LoadMaster(context.Background(), path)
		assert.True(t, pkgerrors.IsParse(err))
	})
}

func TestSaveMasterPreservesNonASCII(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.json")
	require.NoError(t, SaveMaster(path, []catalog.MasterRecord{{AppID: 1, Name: "Pokémon & Co"}}))

	assert.Equal(t, "[\n    {\n        \"appid\": 1,\n        \"name\": \"Pokémon & Co\"\n    }\n]\n", readFile(t, path))

	m, err := LoadMaster(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Pokémon & Co", m.Name(1))
}

func TestReadAllAndWriteAll(t *testing.T) {
	dir := t.TempDir()

	arrayPath := filepath.Join(dir, "list.json")
	writeFile(t, arrayPath, "  [{\"appid\":1,\"name\":\"Café\"}]")
	records, format, stats, err := ReadAll(context.Background(), arrayPath, "appid")
	require.NoError(t, err)
	assert.Equal(t, FormatJSONArray, format)
	assert.Equal(t, 1, stats.Records)
	require.Len(t, records, 1)

	ndPath := filepath.Join(dir, "list.ndjson")
	require.NoError(t, WriteAll(ndPath, records, FormatNDJSON))
	assert.Equal(t, "{\"appid\":1,\"name\":\"Café\"}\n", readFile(t, ndPath))

	format, err = DetectFormat(ndPath)
	require.NoError(t, err)
	assert.Equal(t, FormatNDJSON, format)

	require.NoError(t, WriteAll(arrayPath, nil, FormatJSONArray))
	assert.Equal(t, "[]\n", readFile(t, arrayPath))
}
