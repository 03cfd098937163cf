// Package filter removes unwanted entries from the catalog.
//
// Two filters exist. The name filter drops whole records whose display name
// contains a blocklisted substring. The tag filter drops individual tags from
// a record's tag list and always keeps the record, even with no tags left.
// Both match case-insensitively and both back up the file before rewriting it.
package filter

import (
	"strings"

	"golang.org/x/text/cases"
)

// fold returns s in its case-folded form.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func foldAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if f := fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// NameFilter matches display names against blocklisted substrings.
type NameFilter struct {
	blocklist []string
}

// NewNameFilter returns a filter for the given substrings.
func NewNameFilter(blocklist []string) *NameFilter {
	return &NameFilter{blocklist: foldAll(blocklist)}
}

// Match returns the first blocklisted substring found in name, if any.
func (f *NameFilter) Match(name string) (string, bool) {
	folded := cases.Fold().String(name)
	for _, word := range f.blocklist {
		if strings.Contains(folded, word) {
			return word, true
		}
	}
	return "", false
}

// TagFilter removes blocklisted tags from tag lists.
type TagFilter struct {
	blocklist map[string]struct{}
}

// NewTagFilter returns a filter for the given exact tags.
func NewTagFilter(blocklist []string) *TagFilter {
	set := make(map[string]struct{}, len(blocklist))
	for _, tag := range foldAll(blocklist) {
		set[tag] = struct{}{}
	}
	return &TagFilter{blocklist: set}
}

// Blocked reports whether tag is on the blocklist.
func (f *TagFilter) Blocked(tag string) bool {
	_, ok := f.blocklist[fold(tag)]
	return ok
}

// Clean splits tags into the ones to keep, in their original spelling and
// order, and the ones that were dropped. kept is never nil.
func (f *TagFilter) Clean(tags []string) (kept, dropped []string) {
	kept = make([]string, 0, len(tags))
	for _, tag := range tags {
		if f.Blocked(tag) {
			dropped = append(dropped, tag)
			continue
		}
		kept = append(kept, tag)
	}
	return kept, dropped
}
