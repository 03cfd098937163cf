package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/enhancer"
	"github.com/agentstation/gamesync/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	c.now = func() time.Time { return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC) }
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Un juego de acción", "Un juego de acción"},
		{"line breaks", "Primera línea<br>Segunda<br/>Tercera", "Primera línea Segunda Tercera"},
		{"paragraphs", "<p>Uno</p><p>Dos</p>", "Uno Dos"},
		{"inline tags split words", "a<b>b</b>c", "a b c"},
		{"entities", "Tom &amp; Jerry &quot;Deluxe&quot;", `Tom & Jerry "Deluxe"`},
		{"whitespace", "  mucho \n\t espacio  ", "mucho espacio"},
		{"nested", `<div><ul><li>Rápido</li><li>Ñandú</li></ul></div>`, "Rápido Ñandú"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHTML(tt.in))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12 ABR. 2021", "2021-04-12", true},
		{"3 dic. 2019", "2019-12-03", true},
		{"21 AGOSTO 2012", "2012-08-21", true},
		{"5 XYZ 2020", "2020-01-05", true},
		{"Próximamente", "", false},
		{"2020", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func searchRow(id, title string) string {
	return fmt.Sprintf(`<a href="#" class="search_result_row ds_collapse_flag" data-ds-appid="%s"><div><span class="title">%s</span></div></a>`, id, title)
}

func TestParseSearchResults(t *testing.T) {
	fragment := searchRow("730", "Counter-Strike 2") +
		searchRow("570,571", " Dota 2 ") +
		searchRow("abc", "Broken") +
		`<a class="search_result_row"><span class="title">No id</span></a>`

	results, err := ParseSearchResults(fragment)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{
		{AppID: 730, Title: "Counter-Strike 2"},
		{AppID: 570, Title: "Dota 2"},
	}, results)
}

func TestCollect(t *testing.T) {
	t.Run("stops at target and dedupes", func(t *testing.T) {
		var requests atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			assert.Equal(t, "/search/results/", r.URL.Path)
			assert.Equal(t, "CCU_DESC", r.URL.Query().Get("sort_by"))
			assert.Equal(t, "50", r.URL.Query().Get("count"))
			html := searchRow("1", "One") + searchRow("2", "Two") + searchRow("2", "Two again") +
				searchRow("3", "Three") + searchRow("4", "Four")
			writeJSON(t, w, map[string]any{"success": 1, "results_html": html})
		})

		into := catalog.NewIDMap[string]()
		err := c.Collect(context.Background(), CollectOptions{SortBy: SortConcurrentUsers, Target: 3}, into)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, into.Order())
		name, _ := into.Get(2)
		assert.Equal(t, "Two again", name)
		assert.Equal(t, int32(1), requests.Load())
	})

	t.Run("stops at end of listing and survives failed pages", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			start, _ := strconv.Atoi(r.URL.Query().Get("start"))
			switch start {
			case 0:
				w.WriteHeader(http.StatusInternalServerError)
			case 50:
				writeJSON(t, w, map[string]any{"results_html": searchRow("10", "Ten") + searchRow("11", "Eleven")})
			default:
				writeJSON(t, w, map[string]any{"results_html": ""})
			}
		})

		into := catalog.NewIDMap[string]()
		err := c.Collect(context.Background(), CollectOptions{Target: 100}, into)
		require.NoError(t, err)
		assert.Equal(t, []int64{10, 11}, into.Order())
	})

	t.Run("safety stop", func(t *testing.T) {
		var requests atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			writeJSON(t, w, map[string]any{"results_html": searchRow("7", "Same game")})
		})

		into := catalog.NewIDMap[string]()
		err := c.Collect(context.Background(), CollectOptions{Target: 50}, into)
		require.NoError(t, err)
		assert.Equal(t, 1, into.Len())
		assert.Equal(t, int32(2), requests.Load())
	})
}

func detailsPayload(id int64, data map[string]any) map[string]any {
	return map[string]any{
		strconv.FormatInt(id, 10): map[string]any{"success": true, "data": data},
	}
}

func TestAppDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appdetails/", r.URL.Path)
		assert.Equal(t, "es", r.URL.Query().Get("cc"))
		assert.Equal(t, "spanish", r.URL.Query().Get("l"))

		switch r.URL.Query().Get("appids") {
		case "10":
			writeJSON(t, w, detailsPayload(10, map[string]any{
				"name":                 "Juego <Épico>",
				"is_free":              false,
				"short_description":    "Corto &amp; bueno",
				"detailed_description": "<h1>Acerca</h1><p>Largo</p>",
				"price_overview":       map[string]any{"initial": 1999, "final": 999, "discount_percent": 50},
				"metacritic":           map[string]any{"score": 88},
				"recommendations":      map[string]any{"total": 1234},
				"achievements": map[string]any{
					"total":       40,
					"highlighted": []map[string]any{{"name": "Primero"}, {"name": "Segundo"}},
				},
				"genres":          []map[string]any{{"id": "1", "description": "Acción"}},
				"categories":      []map[string]any{{"id": 2, "description": "Un jugador"}},
				"developers":      []string{"Estudio"},
				"pc_requirements": map[string]any{"minimum": "<strong>Mínimo:</strong><br>SO: Windows"},
				"release_date":    map[string]any{"coming_soon": false, "date": "12 ABR. 2021"},
				"header_image":    "https://cdn/header.jpg",
			}))
		case "20":
			writeJSON(t, w, detailsPayload(20, map[string]any{
				"name":            "Gratis",
				"is_free":         true,
				"price_overview":  map[string]any{"initial": 500, "final": 500},
				"pc_requirements": []any{},
				"release_date":    map[string]any{"date": "Próximamente"},
			}))
		case "30":
			writeJSON(t, w, map[string]any{"30": map[string]any{"success": false}})
		case "40":
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		case "50":
			w.WriteHeader(http.StatusBadGateway)
		case "60":
			w.WriteHeader(http.StatusNotFound)
		case "70":
			_, _ = w.Write([]byte("<html>not json</html>"))
		}
	})
	ctx := context.Background()

	t.Run("full document", func(t *testing.T) {
		data, err := c.AppDetails(ctx, 10)
		require.NoError(t, err)
		doc := NewGameDocument(10, data, c.now())

		assert.Equal(t, int64(10), doc.SteamID)
		assert.Equal(t, "2025-03-01 10:30:00", doc.ScrapedAt)
		assert.InDelta(t, 9.99, doc.PriceEUR, 0.0001)
		assert.InDelta(t, 19.99, doc.PriceInitialEUR, 0.0001)
		assert.Equal(t, 50, doc.DiscountPct)
		assert.Equal(t, 88, doc.MetacriticScore)
		assert.Equal(t, int64(1234), doc.RecommendationsTotal)
		assert.Equal(t, 40, doc.AchievementsCount)
		assert.Equal(t, []string{"Acción"}, doc.Genres)
		assert.Equal(t, []string{"Un jugador"}, doc.Categories)
		assert.Equal(t, []string{"Primero", "Segundo"}, doc.AchievementsList)
		assert.Equal(t, []string{}, doc.Publishers)
		assert.Equal(t, "Corto & bueno", doc.ShortDescription)
		assert.Equal(t, "Acerca Largo", doc.DetailedDescription)
		assert.Equal(t, "Mínimo: SO: Windows", doc.PCRequirementsMin)
		require.NotNil(t, doc.ReleaseDate)
		assert.Equal(t, "2021-04-12", *doc.ReleaseDate)
		assert.Nil(t, doc.Website)

		rec, err := doc.Record()
		require.NoError(t, err)
		keys := rec.Keys()
		assert.Equal(t, "steam_id", keys[0])
		assert.Equal(t, "website", keys[len(keys)-1])
		raw, err := rec.MarshalJSON()
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"name":"Juego <Épico>"`)
		assert.Contains(t, string(raw), `"release_date":"2021-04-12"`)
	})

	t.Run("free game has zero prices", func(t *testing.T) {
		data, err := c.AppDetails(ctx, 20)
		require.NoError(t, err)
		doc := NewGameDocument(20, data, c.now())
		assert.Zero(t, doc.PriceEUR)
		assert.Zero(t, doc.PriceInitialEUR)
		assert.Empty(t, doc.PCRequirementsMin)
		assert.Nil(t, doc.ReleaseDate)
		assert.Equal(t, "Próximamente", doc.ReleaseDateText)
	})

	t.Run("status mapping", func(t *testing.T) {
		_, err := c.AppDetails(ctx, 30)
		assert.True(t, errors.IsUnavailable(err))
		assert.False(t, errors.IsRetryable(err))

		_, err = c.AppDetails(ctx, 40)
		assert.True(t, errors.IsRateLimited(err))
		var rl *errors.RateLimitError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, 7*time.Second, rl.RetryAfter)

		_, err = c.AppDetails(ctx, 50)
		assert.True(t, errors.IsRetryable(err))

		_, err = c.AppDetails(ctx, 60)
		require.Error(t, err)
		assert.False(t, errors.IsRetryable(err))

		_, err = c.AppDetails(ctx, 70)
		var up *errors.UpstreamError
		require.ErrorAs(t, err, &up)
		assert.False(t, up.Retryable())
	})
}

func TestDescriptionDocument(t *testing.T) {
	doc, ok := NewDescriptionDocument(5, &AppData{Name: "X", DetailedDescription: "<p>Hola</p>"})
	require.True(t, ok)
	assert.Equal(t, &DescriptionDocument{SteamID: 5, Name: "X", DetailedDescription: "Hola"}, doc)

	_, ok = NewDescriptionDocument(5, &AppData{Name: "X", DetailedDescription: "<p> </p><br>"})
	assert.False(t, ok)
}

func TestParseAppTags(t *testing.T) {
	page := []byte(`<html><body><div class="glance_tags popular_tags">
		<a href="/tags/a" class="app_tag">
			Acción
		</a>
		<a href="/tags/b" class="app_tag">Mundo abierto</a>
		<a href="/tags/a" class="app_tag">acción</a>
		<div class="app_tag add_button">+</div>
		<a class="app_tag">+</a>
	</div></body></html>`)

	tags, err := ParseAppTags(page)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acción", "Mundo abierto"}, tags)
}

func TestEnhancersWithRunner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/appdetails/":
			id, _ := strconv.ParseInt(r.URL.Query().Get("appids"), 10, 64)
			if id == 3 {
				writeJSON(t, w, map[string]any{"3": map[string]any{"success": false}})
				return
			}
			desc := "<p>Descripción</p>"
			if id == 2 {
				desc = ""
			}
			writeJSON(t, w, detailsPayload(id, map[string]any{
				"name":                 fmt.Sprintf("Game %d", id),
				"detailed_description": desc,
			}))
		case "/app/1/":
			_, _ = w.Write([]byte(`<a class="app_tag">Indie</a>`))
		default:
			_, _ = w.Write([]byte(`<html></html>`))
		}
	})

	tasks := []enhancer.Task{{ID: 1}, {ID: 2}, {ID: 3}}
	cfg := enhancer.DefaultRunConfig()
	cfg.RetryDelay = time.Millisecond

	t.Run("describe", func(t *testing.T) {
		sink := &recordSink{}
		stats, err := enhancer.Run(context.Background(), cfg, tasks, NewDescribeEnhancer(c), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Written)
		assert.Equal(t, int64(2), stats.Unavailable)
		require.Len(t, sink.records, 1)
		assert.Equal(t, "Descripción", sink.records[0].String("detailed_description"))
	})

	t.Run("details", func(t *testing.T) {
		sink := &recordSink{}
		stats, err := enhancer.Run(context.Background(), cfg, tasks, NewDetailsEnhancer(c), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Written)
		assert.Equal(t, int64(1), stats.Unavailable)
	})

	t.Run("tags", func(t *testing.T) {
		sink := &recordSink{}
		stats, err := enhancer.Run(context.Background(), cfg, tasks, NewTagsEnhancer(c), sink)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Written)
		assert.Equal(t, int64(2), stats.Unavailable)
		require.Len(t, sink.records, 1)
		assert.Equal(t, []string{"Indie"}, sink.records[0].Strings("tags"))
	})
}

// recordSink collects records; the runner here uses one worker.
type recordSink struct {
	records []*catalog.Record
}

func (s *recordSink) Write(rec *catalog.Record) error {
	s.records = append(s.records, rec)
	return nil
}
