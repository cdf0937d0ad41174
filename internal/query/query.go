// Package query parses free-text search input into structured search
// parameters.
package query

import (
	"regexp"
	"strings"
)

// SearchQuery is the parsed form of a raw search string. It is derived
// once per search invocation and never mutated afterwards.
type SearchQuery struct {
	RawText      string
	GeneralTerm  string
	ArtistFilter string
	AlbumFilter  string
}

// Field tokens accept double-quoted, single-quoted, or bare single-token
// values. First match wins.
var (
	artistRe = regexp.MustCompile(`(?i)artist:\s*(?:"([^"]+)"|'([^']+)'|(\S+))`)
	albumRe  = regexp.MustCompile(`(?i)album:\s*(?:"([^"]+)"|'([^']+)'|(\S+))`)
)

// Parse extracts artist: and album: field tokens from raw and returns the
// structured query. Both tokens are matched against the original text
// independently; the matched spans are then removed from the residual to
// form the general term. Pure, no failure mode.
func Parse(raw string) SearchQuery {
	q := SearchQuery{
		RawText:     raw,
		GeneralTerm: strings.TrimSpace(raw),
	}

	if m := artistRe.FindStringSubmatch(raw); m != nil {
		q.ArtistFilter = strings.TrimSpace(firstGroup(m))
		q.GeneralTerm = strings.TrimSpace(strings.Replace(q.GeneralTerm, m[0], "", 1))
	}
	if m := albumRe.FindStringSubmatch(raw); m != nil {
		q.AlbumFilter = strings.TrimSpace(firstGroup(m))
		q.GeneralTerm = strings.TrimSpace(strings.Replace(q.GeneralTerm, m[0], "", 1))
	}

	// Providers that only understand free text still need a non-empty
	// term when the input was nothing but field tokens.
	if q.GeneralTerm == "" {
		switch {
		case q.ArtistFilter != "":
			q.GeneralTerm = q.ArtistFilter
		case q.AlbumFilter != "":
			q.GeneralTerm = q.AlbumFilter
		}
	}

	return q
}

// HasFilters reports whether either field filter is set.
func (q SearchQuery) HasFilters() bool {
	return q.ArtistFilter != "" || q.AlbumFilter != ""
}

// Words returns the whitespace-separated words of the general term.
func (q SearchQuery) Words() []string {
	return strings.Fields(q.GeneralTerm)
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}
