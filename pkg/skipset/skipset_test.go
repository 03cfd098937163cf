package skipset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/store"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.ndjson")
	content := strings.Join([]string{
		`{"steam_id":10,"summary":"a"}`,
		`garbage`,
		`{"steam_id":"20","summary":"b"}`,
		`{"steam_id":10,"summary":"again"}`,
		``,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, stats, err := Load(context.Background(), path, "steam_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, s.IDs())
	assert.Equal(t, 1, stats.ParseErrors)
	assert.True(t, s.Contains(20))
	assert.False(t, s.Contains(30))
}

func TestLoadMissingStoreIsEmpty(t *testing.T) {
	s, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "none.ndjson"), "steam_id")
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestRestrictValidatorWins(t *testing.T) {
	s := New()
	for _, id := range []int64{1, 2, 3, 4} {
		assert.True(t, s.Add(id))
	}
	assert.False(t, s.Add(1))

	dropped := s.Restrict(catalog.NewIDSet(2, 4, 6))
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []int64{2, 4}, s.IDs())
}

func TestSinkAppendsAndCreatesDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "raw-desc.ndjson")

	sink, err := Open(path)
	require.NoError(t, err)

	rec := catalog.NewRecord()
	require.NoError(t, rec.Set("steam_id", 1))
	require.NoError(t, rec.Set("name", "Señor <Juego>"))
	require.NoError(t, sink.Write(rec))

	// Visible before Close.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"steam_id\":1,\"name\":\"Señor <Juego>\"}\n", string(data))

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.Error(t, sink.Write(rec))

	sink, err = Open(path)
	require.NoError(t, err)
	rec2 := catalog.NewRecord()
	require.NoError(t, rec2.Set("steam_id", 2))
	require.NoError(t, sink.Write(rec2))
	require.NoError(t, sink.Close())

	s, _, err := Load(context.Background(), path, "steam_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, s.IDs())
}

func TestSinkAppendsAfterUnterminatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(`{"steam_id":1,"summary":"a"}`), 0o644))

	sink, err := Open(path)
	require.NoError(t, err)
	rec := catalog.NewRecord()
	require.NoError(t, rec.Set("steam_id", 2))
	require.NoError(t, sink.Write(rec))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"steam_id\":1,\"summary\":\"a\"}\n{\"steam_id\":2}\n", string(data))

	s, _, err := Load(context.Background(), path, "steam_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, s.IDs())
}

func TestSinkKeepsTornLineSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.ndjson")
	require.NoError(t, os.WriteFile(path, []byte("{\"steam_id\":1}\n{\"steam_id\":3,\"summ"), 0o644))

	sink, err := Open(path)
	require.NoError(t, err)
	rec := catalog.NewRecord()
	require.NoError(t, rec.Set("steam_id", 2))
	require.NoError(t, sink.Write(rec))
	require.NoError(t, sink.Close())

	s, stats, err := Load(context.Background(), path, "steam_id")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, s.IDs())
	assert.Equal(t, 1, stats.ParseErrors)
}

func TestSinkConcurrentWritesStayWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.ndjson")
	sink, err := Open(path)
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rec := catalog.NewRecord()
			_ = rec.Set("steam_id", id)
			_ = rec.Set("summary", strings.Repeat("x", 512))
			assert.NoError(t, sink.Write(rec))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, sink.Written())
	require.NoError(t, sink.Close())

	ids := 0
	stats, err := store.Scan(context.Background(), path, "steam_id", func(store.Entry) error {
		ids++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, n, ids)
	assert.Zero(t, stats.ParseErrors)
}
