package provider

import (
	"context"
	"strings"
	"time"

	"github.com/llehouerou/cratedigger/internal/query"
)

// mockDelay simulates network latency so consumers exercise their async
// paths.
const mockDelay = 100 * time.Millisecond

var mockAlbums = []AlbumArt{
	{
		ID:         "mock-1",
		SourceURL:  "https://placehold.co/300x300?text=Album+1",
		Artist:     "Artist 1",
		Album:      "Album 1",
		ProviderID: IDMock,
		Resolution: &Resolution{Width: 300, Height: 300},
	},
	{
		ID:         "mock-2",
		SourceURL:  "https://placehold.co/300x300?text=Album+2",
		Artist:     "Artist 2",
		Album:      "Album 2",
		ProviderID: IDMock,
		Resolution: &Resolution{Width: 300, Height: 300},
	},
}

// Mock serves a fixed in-memory list with no network I/O. Disabled in
// production provider listings by default.
type Mock struct{}

// NewMock creates the mock adapter.
func NewMock() *Mock {
	return &Mock{}
}

// Descriptor implements Provider.
func (p *Mock) Descriptor() Descriptor {
	return Descriptor{
		ID:             IDMock,
		DisplayName:    "Mock Data",
		RequiresKey:    false,
		DefaultEnabled: false,
		RateLimit:      RateLimit{MaxCalls: 100, Interval: time.Second},
	}
}

// Search implements Provider with a case-insensitive substring filter
// over the fixture list, after an artificial delay.
func (p *Mock) Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error) {
	select {
	case <-ctx.Done():
		return SearchPage{}, ctx.Err()
	case <-time.After(mockDelay):
	}

	term := strings.ToLower(q.GeneralTerm)
	artist := strings.ToLower(q.ArtistFilter)
	album := strings.ToLower(q.AlbumFilter)

	var filtered []AlbumArt
	for _, a := range mockAlbums {
		artistLower := strings.ToLower(a.Artist)
		albumLower := strings.ToLower(a.Album)

		if artist != "" && !strings.Contains(artistLower, artist) {
			continue
		}
		if album != "" && !strings.Contains(albumLower, album) {
			continue
		}
		if artist == "" && album == "" &&
			!strings.Contains(artistLower, term) && !strings.Contains(albumLower, term) {
			continue
		}
		filtered = append(filtered, a)
	}

	return SearchPage{
		Albums:         filtered,
		TotalAvailable: len(filtered),
		PageNumber:     page,
	}, nil
}
