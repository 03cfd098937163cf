package storefront

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/errors"
)

// TagsDocument is one line of the tags store.
type TagsDocument struct {
	SteamID int64    `json:"steam_id"`
	Tags    []string `json:"tags"`
}

// Record converts the document to a store record.
func (d *TagsDocument) Record() (*catalog.Record, error) { return catalog.FromValue(d) }

// AppTags scrapes the user tags shown on the app page of id.
// A page without tags yields an error matching errors.ErrUnavailable.
func (c *Client) AppTags(ctx context.Context, id int64) ([]string, error) {
	resp, err := c.get(ctx, id, "/app/"+strconv.FormatInt(id, 10)+"/", map[string]string{
		"l": c.opts.Language,
	})
	if err != nil {
		return nil, err
	}

	tags, err := ParseAppTags(resp.Body())
	if err != nil {
		return nil, errors.NewUpstreamError(service, id, resp.StatusCode(), err)
	}
	if len(tags) == 0 {
		return nil, &errors.UpstreamError{
			Service:    service,
			ID:         id,
			StatusCode: resp.StatusCode(),
			Message:    "app page has no tags",
			Err:        errors.ErrUnavailable,
		}
	}
	return tags, nil
}

// ParseAppTags returns the tag names of an app page in page order, without
// duplicates. The "+" pseudo tag that opens the tag editor is ignored.
func ParseAppTags(page []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var tags []string
	doc.Find("a.app_tag").Each(func(_ int, s *goquery.Selection) {
		tag := collapse(s.Text())
		if tag == "" || tag == "+" || seen[strings.ToLower(tag)] {
			return
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	})
	return tags, nil
}
