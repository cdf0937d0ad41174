// Package provider defines the uniform search contract over external
// music metadata APIs and the adapters implementing it.
package provider

import (
	"context"
	"time"

	"github.com/llehouerou/cratedigger/internal/imagecache"
	"github.com/llehouerou/cratedigger/internal/query"
)

// Provider identifiers. These namespace album ids and key the enabled-set
// configuration.
const (
	IDLastFM      = "lastfm"
	IDDiscogs     = "discogs"
	IDMusicBrainz = "musicbrainz"
	IDITunes      = "itunes"
	IDMock        = "mock"
)

// Resolution is the pixel dimensions of an artwork image, when known.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AlbumArt is the canonical normalized search result. The JSON tags match
// the persisted crate format; LocalHandle is process-scoped and never
// serialized.
type AlbumArt struct {
	ID          string             `json:"id"`
	SourceURL   string             `json:"url"`
	LocalHandle *imagecache.Handle `json:"-"`
	Artist      string             `json:"artist"`
	Album       string             `json:"album"`
	ProviderID  string             `json:"provider"`
	Resolution  *Resolution        `json:"resolution,omitempty"`
}

// SearchPage is one page of normalized results from a single provider.
type SearchPage struct {
	Albums         []AlbumArt
	TotalAvailable int
	PageNumber     int
}

// RateLimit caps a provider at MaxCalls per Interval.
type RateLimit struct {
	MaxCalls int
	Interval time.Duration
}

// Descriptor is the static configuration of one provider.
type Descriptor struct {
	ID             string
	DisplayName    string
	RequiresKey    bool
	DefaultEnabled bool
	RateLimit      RateLimit
}

// Provider is the capability interface every adapter implements.
type Provider interface {
	Descriptor() Descriptor

	// Search runs one page of a search. Adapters requiring a credential
	// return an empty page, not an error, when none is configured.
	Search(ctx context.Context, q query.SearchQuery, page int) (SearchPage, error)
}

// namespacedID builds the cross-provider-collision-safe album id.
func namespacedID(providerID, nativeID string) string {
	return providerID + "-" + nativeID
}
