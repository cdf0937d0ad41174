package provider

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/llehouerou/cratedigger/internal/query"
)

const discogsBaseURL = "https://api.discogs.com/database/search"

// Discogs searches the Discogs release database. Requires a personal
// access token; without one it returns empty pages rather than failing.
type Discogs struct {
	client *client
	token  string
}

// NewDiscogs creates the Discogs adapter with the given token.
func NewDiscogs(token string) *Discogs {
	return &Discogs{
		client: newClient(IDDiscogs),
		token:  token,
	}
}

// Descriptor implements Provider.
func (p *Discogs) Descriptor() Descriptor {
	return Descriptor{
		ID:             IDDiscogs,
		DisplayName:    "Discogs",
		RequiresKey:    true,
		DefaultEnabled: true,
		RateLimit:      RateLimit{MaxCalls: 1, Interval: time.Second},
	}
}

type discogsResult struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	CoverImage string `json:"cover_image"`
}

type discogsSearchResponse struct {
	Pagination struct {
		Items int `json:"items"`
	} `json:"pagination"`
	Results []discogsResult `json:"results"`
}

// Search implements Provider. Discogs supports structured artist and
// release-title fields server-side; the free-text q parameter is only
// sent when neither filter is set.
func (p *Discogs) Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error) {
	if p.token == "" {
		return SearchPage{PageNumber: page}, nil
	}

	params := url.Values{}
	params.Set("type", "release")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", "30")
	params.Set("token", p.token)

	if q.ArtistFilter != "" {
		params.Set("artist", q.ArtistFilter)
	}
	if q.AlbumFilter != "" {
		params.Set("release_title", q.AlbumFilter)
	}
	if q.ArtistFilter == "" && q.AlbumFilter == "" {
		params.Set("q", q.GeneralTerm)
	}

	var result discogsSearchResponse
	if err := p.client.getJSON(ctx, discogsBaseURL+"?"+params.Encode(), &result); err != nil {
		return SearchPage{}, err
	}

	albums := make([]AlbumArt, 0, len(result.Results))
	for _, r := range result.Results {
		artist, album := splitDiscogsTitle(r.Title)
		albums = append(albums, AlbumArt{
			ID:         namespacedID(IDDiscogs, strconv.Itoa(r.ID)),
			SourceURL:  r.CoverImage,
			Artist:     artist,
			Album:      album,
			ProviderID: IDDiscogs,
		})
	}

	return SearchPage{
		Albums:         albums,
		TotalAvailable: result.Pagination.Items,
		PageNumber:     page,
	}, nil
}

// splitDiscogsTitle breaks Discogs' combined "Artist - Album" title into
// its parts. Further " - " separators belong to the album title.
func splitDiscogsTitle(title string) (artist, album string) {
	parts := strings.SplitN(title, " - ", 2)
	artist = strings.TrimSpace(parts[0])
	if artist == "" {
		artist = "Unknown Artist"
	}
	if len(parts) > 1 {
		album = strings.TrimSpace(parts[1])
	}
	if album == "" {
		album = "Unknown Album"
	}
	return artist, album
}
