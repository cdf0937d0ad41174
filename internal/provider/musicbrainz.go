package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/llehouerou/cratedigger/internal/query"
)

const (
	musicbrainzBaseURL = "https://musicbrainz.org/ws/2/release"
	coverArtBaseURL    = "https://coverartarchive.org/release/"

	// Search matches at or below this relevance score (MusicBrainz's
	// 0-100 scale) are too loose to show.
	mbScoreThreshold = 60
)

// MusicBrainz searches the MusicBrainz release index and points artwork
// at the Cover Art Archive. Unauthenticated; MusicBrainz asks for one
// request per second, enforced by the aggregator's limiter.
type MusicBrainz struct {
	client *client
}

// NewMusicBrainz creates the MusicBrainz adapter.
func NewMusicBrainz() *MusicBrainz {
	return &MusicBrainz{client: newClient(IDMusicBrainz)}
}

// Descriptor implements Provider.
func (p *MusicBrainz) Descriptor() Descriptor {
	return Descriptor{
		ID:             IDMusicBrainz,
		DisplayName:    "MusicBrainz",
		RequiresKey:    false,
		DefaultEnabled: true,
		RateLimit:      RateLimit{MaxCalls: 1, Interval: time.Second},
	}
}

type mbArtistCredit struct {
	Name string `json:"name"`
}

type mbRelease struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Score        int              `json:"score"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
}

type mbSearchResponse struct {
	Count    int         `json:"count"`
	Releases []mbRelease `json:"releases"`
}

// Search implements Provider. The query is expressed in MusicBrainz's
// Lucene syntax, using field searches when filters are present.
func (p *MusicBrainz) Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error) {
	offset := (page - 1) * 30

	var lucene string
	switch {
	case q.ArtistFilter != "" && q.AlbumFilter != "":
		lucene = fmt.Sprintf("artistname:%q AND release:%q", q.ArtistFilter, q.AlbumFilter)
	case q.ArtistFilter != "":
		lucene = fmt.Sprintf("artistname:%q", q.ArtistFilter)
	case q.AlbumFilter != "":
		lucene = fmt.Sprintf("release:%q", q.AlbumFilter)
	default:
		lucene = fmt.Sprintf("artistname:%q OR release:%q", q.GeneralTerm, q.GeneralTerm)
	}

	params := url.Values{}
	params.Set("query", lucene)
	params.Set("fmt", "json")
	params.Set("limit", "30")
	params.Set("offset", strconv.Itoa(offset))

	var result mbSearchResponse
	if err := p.client.getJSON(ctx, musicbrainzBaseURL+"?"+params.Encode(), &result); err != nil {
		return SearchPage{}, err
	}

	albums := make([]AlbumArt, 0, len(result.Releases))
	for _, r := range result.Releases {
		// Score semantics are provider-specific, so low-confidence
		// matches are dropped here rather than in the aggregator.
		if r.Score <= mbScoreThreshold {
			continue
		}

		artist := "Unknown Artist"
		if len(r.ArtistCredit) > 0 && r.ArtistCredit[0].Name != "" {
			artist = r.ArtistCredit[0].Name
		}

		albums = append(albums, AlbumArt{
			ID:         namespacedID(IDMusicBrainz, r.ID),
			SourceURL:  coverArtBaseURL + r.ID + "/front-500",
			Artist:     artist,
			Album:      r.Title,
			ProviderID: IDMusicBrainz,
		})
	}

	return SearchPage{
		Albums:         albums,
		TotalAvailable: result.Count,
		PageNumber:     page,
	}, nil
}
