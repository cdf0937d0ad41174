package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/cratedigger/internal/query"
)

const itunesBaseURL = "https://itunes.apple.com/search"

// ITunes searches the iTunes/Apple Music album catalog. Unauthenticated.
type ITunes struct {
	client *client
}

// NewITunes creates the iTunes adapter.
func NewITunes() *ITunes {
	return &ITunes{client: newClient(IDITunes)}
}

// Descriptor implements Provider.
func (p *ITunes) Descriptor() Descriptor {
	return Descriptor{
		ID:             IDITunes,
		DisplayName:    "Apple iTunes",
		RequiresKey:    false,
		DefaultEnabled: true,
		RateLimit:      RateLimit{MaxCalls: 5, Interval: time.Second},
	}
}

type itunesResult struct {
	CollectionID   int    `json:"collectionId"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
}

type itunesSearchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []itunesResult `json:"results"`
}

// Search implements Provider. iTunes has no field search; artist and
// album filters are merged into one term. Pagination is expressed as
// limit/offset.
func (p *ITunes) Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error) {
	const limit = 30
	offset := (page - 1) * limit

	term := q.GeneralTerm
	if q.ArtistFilter != "" && q.AlbumFilter != "" {
		term = q.ArtistFilter + " " + q.AlbumFilter
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("media", "music")
	params.Set("entity", "album")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var result itunesSearchResponse
	if err := p.client.getJSON(ctx, itunesBaseURL+"?"+params.Encode(), &result); err != nil {
		return SearchPage{}, err
	}

	albums := make([]AlbumArt, 0, len(result.Results))
	for _, r := range result.Results {
		albums = append(albums, AlbumArt{
			ID: namespacedID(IDITunes, strconv.Itoa(r.CollectionID)),
			// The catalog serves 100x100 thumbnails; the same path with
			// a bigger size token yields a 600x600 rendition.
			SourceURL:  strings.Replace(r.ArtworkURL100, "100x100bb", "600x600bb", 1),
			Artist:     r.ArtistName,
			Album:      r.CollectionName,
			ProviderID: IDITunes,
		})
	}

	// The search endpoint reports no overall total; approximate one so
	// pagination can continue while full pages keep coming back.
	total := page * limit
	if result.ResultCount >= limit {
		total += limit
	}

	return SearchPage{
		Albums:         albums,
		TotalAvailable: total,
		PageNumber:     page,
	}, nil
}
