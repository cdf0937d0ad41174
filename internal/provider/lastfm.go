package provider

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/llehouerou/cratedigger/internal/query"
)

const lastfmBaseURL = "https://ws.audioscrobbler.com/2.0/"

// LastFM searches Last.fm's album catalog. Requires an API key; without
// one it returns empty pages rather than failing.
type LastFM struct {
	client *client
	apiKey string
}

// NewLastFM creates the Last.fm adapter with the given API key. An empty
// key is a valid, inert configuration.
func NewLastFM(apiKey string) *LastFM {
	return &LastFM{
		client: newClient(IDLastFM),
		apiKey: apiKey,
	}
}

// Descriptor implements Provider.
func (p *LastFM) Descriptor() Descriptor {
	return Descriptor{
		ID:             IDLastFM,
		DisplayName:    "Last.fm",
		RequiresKey:    true,
		DefaultEnabled: true,
		RateLimit:      RateLimit{MaxCalls: 5, Interval: time.Second},
	}
}

// lastfmImage is one entry of the per-album image size ladder.
type lastfmImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

type lastfmAlbumMatch struct {
	MBID   string        `json:"mbid"`
	URL    string        `json:"url"`
	Artist string        `json:"artist"`
	Name   string        `json:"name"`
	Images []lastfmImage `json:"image"`
}

type lastfmSearchResponse struct {
	Results struct {
		TotalResults string `json:"opensearch:totalResults"`
		AlbumMatches struct {
			Albums []lastfmAlbumMatch `json:"album"`
		} `json:"albummatches"`
	} `json:"results"`
}

// Search implements Provider. Last.fm's album.search takes a single
// album term; the album filter is preferred over the general term.
func (p *LastFM) Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error) {
	if p.apiKey == "" {
		return SearchPage{PageNumber: page}, nil
	}

	term := q.AlbumFilter
	if term == "" {
		term = q.GeneralTerm
	}

	params := url.Values{}
	params.Set("method", "album.search")
	params.Set("album", term)
	params.Set("api_key", p.apiKey)
	params.Set("format", "json")
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", "30")

	var result lastfmSearchResponse
	if err := p.client.getJSON(ctx, lastfmBaseURL+"?"+params.Encode(), &result); err != nil {
		return SearchPage{}, err
	}

	matches := result.Results.AlbumMatches.Albums
	albums := make([]AlbumArt, 0, len(matches))
	for _, m := range matches {
		nativeID := m.MBID
		if nativeID == "" {
			nativeID = m.URL
		}
		albums = append(albums, AlbumArt{
			ID:         namespacedID(IDLastFM, nativeID),
			SourceURL:  pickImage(m.Images),
			Artist:     m.Artist,
			Album:      m.Name,
			ProviderID: IDLastFM,
		})
	}

	total, _ := strconv.Atoi(result.Results.TotalResults)

	return SearchPage{
		Albums:         albums,
		TotalAvailable: total,
		PageNumber:     page,
	}, nil
}

// pickImage prefers the extralarge rendition, falling back to the first
// entry of the size ladder.
func pickImage(images []lastfmImage) string {
	for _, img := range images {
		if img.Size == "extralarge" && img.URL != "" {
			return img.URL
		}
	}
	if len(images) > 0 {
		return images[0].URL
	}
	return ""
}
