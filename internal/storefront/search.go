package storefront

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/constants"
	"github.com/agentstation/gamesync/pkg/logging"
)

// Search orders accepted by the storefront listing.
const (
	SortConcurrentUsers = "CCU_DESC"
	SortRelevance       = ""
)

// SearchResult is one row of a search page.
type SearchResult struct {
	AppID int64
	Title string
}

type searchResponse struct {
	Success     int    `json:"success"`
	ResultsHTML string `json:"results_html"`
	TotalCount  int    `json:"total_count"`
}

// SearchPage fetches one page of the storefront listing.
func (c *Client) SearchPage(ctx context.Context, sortBy string, start int) ([]SearchResult, error) {
	params := map[string]string{
		"query":              "",
		"start":              strconv.Itoa(start),
		"count":              strconv.Itoa(constants.SearchPageSize),
		"sort_by":            sortBy,
		"infinite":           "1",
		"ignore_preferences": "1",
		"cc":                 constants.SearchCountryCode,
	}

	var body searchResponse
	if err := c.getJSON(ctx, 0, "/search/results/", params, &body); err != nil {
		return nil, err
	}
	return ParseSearchResults(body.ResultsHTML)
}

// ParseSearchResults extracts app ids and titles from a results_html
// fragment. Rows carrying several comma-separated ids keep the first one.
func ParseSearchResults(fragment string) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	doc.Find("a.search_result_row").Each(func(_ int, row *goquery.Selection) {
		raw, ok := row.Attr("data-ds-appid")
		if !ok {
			return
		}
		first, _, _ := strings.Cut(raw, ",")
		id, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
		if err != nil || id <= 0 {
			return
		}
		results = append(results, SearchResult{
			AppID: id,
			Title: strings.TrimSpace(row.Find("span.title").First().Text()),
		})
	})
	return results, nil
}

// CollectOptions tunes one collection pass.
type CollectOptions struct {
	SortBy string
	Target int

	// PageDelay is the pause between pages; ErrorDelay the pause after a
	// failed page.
	PageDelay  time.Duration
	ErrorDelay time.Duration
}

// Collect walks the listing in the given order until it has Target unique
// games, the listing runs out, or the offset passes twice the target.
// Failed pages are logged and skipped.
func (c *Client) Collect(ctx context.Context, opts CollectOptions, into *catalog.IDMap[string]) error {
	logger := logging.Ctx(ctx).With().Str("sort_by", opts.SortBy).Logger()
	found := 0
	seen := make(catalog.IDSet)
	safety := opts.Target * 2

	for offset := 0; found < opts.Target && offset < safety; offset += constants.SearchPageSize {
		results, err := c.SearchPage(ctx, opts.SortBy, offset)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			logger.Warn().Err(err).Int("offset", offset).Msg("Search page failed")
			if err := sleep(ctx, opts.ErrorDelay); err != nil {
				return err
			}
		case len(results) == 0:
			logger.Info().Int("offset", offset).Msg("End of listing")
			return nil
		default:
			for _, r := range results {
				if found >= opts.Target {
					break
				}
				into.Put(r.AppID, r.Title)
				if seen.Add(r.AppID) {
					found++
				}
			}
			logger.Info().Int("offset", offset).Int("found", found).Msg("Search page collected")
		}

		if err := sleep(ctx, opts.PageDelay); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
