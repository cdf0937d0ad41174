package imagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llehouerou/cratedigger/internal/imageproxy"
)

const (
	userAgent    = "cratedigger/1.0 (https://github.com/llehouerou/cratedigger)"
	fetchTimeout = 15 * time.Second

	// Anything larger than this is almost certainly not album artwork.
	maxImageBytes = 20 << 20
)

// Fetcher downloads artwork bytes through the image proxy and returns a
// local handle backed by them.
type Fetcher struct {
	httpClient *http.Client
	size       imageproxy.Size
}

// NewFetcher creates a fetcher that requests images at the medium size
// class, the same resolution the original crate caches at.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
		size:       imageproxy.SizeMedium,
	}
}

// Fetch downloads the artwork at sourceURL via the resize proxy and
// returns a handle over the bytes. The caller owns the handle and must
// Release it when the bytes are no longer referenced.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL string) (*Handle, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("empty source url")
	}

	reqURL := imageproxy.Resolve(sourceURL, f.size)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image body")
	}

	return NewHandle(data, resp.Header.Get("Content-Type")), nil
}
