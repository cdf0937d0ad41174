// Package search fans a parsed query out to every enabled provider
// concurrently and assembles one filtered, deduplicated result list.
package search

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/cratedigger/internal/provider"
	"github.com/llehouerou/cratedigger/internal/query"
)

// placeholderMarkers identify "no image available" stand-ins served by
// providers instead of real artwork.
var placeholderMarkers = []string{
	"default_album_artwork",
	"no-cover",
	"spacer.gif",
	"placeholder",
}

// Credentials is the read-only snapshot of user-supplied API keys
// consulted when building the provider registry.
type Credentials struct {
	LastFMKey    string
	DiscogsToken string
}

// entry pairs a provider with its independent rate limiter.
type entry struct {
	provider provider.Provider
	limiter  *limiter
}

// Aggregator runs searches across a fixed, ordered provider registry.
// Registry order is the dedup tie-break: earlier providers win.
type Aggregator struct {
	entries []entry
	log     zerolog.Logger
}

// New creates an aggregator over the given providers, in the given
// order, each wrapped by a limiter matching its descriptor's rate limit.
func New(log zerolog.Logger, providers ...provider.Provider) *Aggregator {
	entries := make([]entry, 0, len(providers))
	for _, p := range providers {
		entries = append(entries, entry{
			provider: p,
			limiter:  newLimiter(p.Descriptor().RateLimit),
		})
	}
	return &Aggregator{entries: entries, log: log}
}

// NewDefault creates an aggregator over the standard provider registry:
// Last.fm, Discogs, MusicBrainz, iTunes, then the mock fixture (disabled
// unless explicitly enabled).
func NewDefault(log zerolog.Logger, creds Credentials) *Aggregator {
	return New(log,
		provider.NewLastFM(creds.LastFMKey),
		provider.NewDiscogs(creds.DiscogsToken),
		provider.NewMusicBrainz(),
		provider.NewITunes(),
		provider.NewMock(),
	)
}

// Descriptors returns the registry's provider descriptors in order.
func (a *Aggregator) Descriptors() []provider.Descriptor {
	ds := make([]provider.Descriptor, 0, len(a.entries))
	for _, e := range a.entries {
		ds = append(ds, e.provider.Descriptor())
	}
	return ds
}

// SearchAll parses rawText once, queries every enabled provider
// concurrently, and returns the merged, filtered, deduplicated album
// list. enabled maps provider ids to their on/off state; a nil map means
// each provider's default. Individual provider failures contribute zero
// results and are logged, never propagated.
func (a *Aggregator) SearchAll(ctx context.Context, rawText string, page int, enabled map[string]bool) []provider.AlbumArt {
	if strings.TrimSpace(rawText) == "" {
		return nil
	}

	q := query.Parse(rawText)

	active := a.activeEntries(enabled)
	if len(active) == 0 {
		return nil
	}

	log := a.log.With().Str("search_id", uuid.NewString()).Logger()

	// True fan-out: every provider call is issued before any result is
	// awaited; each outcome lands in its own slot so assembly order
	// stays the configured registry order regardless of completion
	// order.
	pages := make([]provider.SearchPage, len(active))
	var wg sync.WaitGroup
	for i, e := range active {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := e.limiter.wait(ctx); err != nil {
				log.Warn().
					Str("provider", e.provider.Descriptor().ID).
					Err(err).
					Msg("rate limit wait aborted")
				return
			}

			result, err := e.provider.Search(ctx, q, page)
			if err != nil {
				log.Warn().
					Str("provider", e.provider.Descriptor().ID).
					Err(err).
					Msg("provider search failed")
				return
			}
			pages[i] = result
		}()
	}
	wg.Wait()

	var all []provider.AlbumArt
	for _, p := range pages {
		all = append(all, p.Albums...)
	}

	return dedupe(filterRelevant(all, q))
}

// activeEntries filters the registry to enabled providers, preserving
// registry order.
func (a *Aggregator) activeEntries(enabled map[string]bool) []entry {
	var active []entry
	for _, e := range a.entries {
		d := e.provider.Descriptor()
		on := d.DefaultEnabled
		if enabled != nil {
			if v, ok := enabled[d.ID]; ok {
				on = v
			}
		}
		if on {
			active = append(active, e)
		}
	}
	return active
}

// filterRelevant applies the post-processing pipeline short of dedup:
// empty-URL drop, field or AND-of-substrings relevance match, and
// placeholder exclusion.
func filterRelevant(albums []provider.AlbumArt, q query.SearchQuery) []provider.AlbumArt {
	words := q.Words()
	for i := range words {
		words[i] = strings.ToLower(words[i])
	}
	artistFilter := strings.ToLower(q.ArtistFilter)
	albumFilter := strings.ToLower(q.AlbumFilter)

	var kept []provider.AlbumArt
	for _, a := range albums {
		if a.SourceURL == "" {
			continue
		}

		artistLower := strings.ToLower(a.Artist)
		albumLower := strings.ToLower(a.Album)

		if artistFilter != "" && !strings.Contains(artistLower, artistFilter) {
			continue
		}
		if albumFilter != "" && !strings.Contains(albumLower, albumFilter) {
			continue
		}

		// Without field filters, every word of the general term must
		// appear somewhere in the combined artist+title text. A filter,
		// not a ranking.
		if artistFilter == "" && albumFilter == "" {
			combined := artistLower + " " + albumLower
			relevant := true
			for _, w := range words {
				if !strings.Contains(combined, w) {
					relevant = false
					break
				}
			}
			if !relevant {
				continue
			}
		}

		if hasPlaceholderMarker(a.SourceURL) {
			continue
		}

		kept = append(kept, a)
	}
	return kept
}

func hasPlaceholderMarker(sourceURL string) bool {
	lower := strings.ToLower(sourceURL)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dedupe drops later occurrences of the same artist+album pair. Input
// order is registry order then discovery order, so earlier-listed
// providers win ties.
func dedupe(albums []provider.AlbumArt) []provider.AlbumArt {
	seen := make(map[string]struct{}, len(albums))
	var unique []provider.AlbumArt
	for _, a := range albums {
		key := strings.ToLower(a.Artist) + "-" + strings.ToLower(a.Album)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, a)
	}
	return unique
}
