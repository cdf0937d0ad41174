// Package imageproxy maps raw artwork URLs to CORS-safe, resized
// delivery URLs served by the wsrv.nl image proxy.
package imageproxy

import (
	"net/url"
	"strconv"
)

const proxyBaseURL = "https://wsrv.nl/"

// Size is a delivery size class for proxied artwork.
type Size string

// Size classes and their square pixel dimensions.
const (
	SizeThumb    Size = "thumb"  // 300px
	SizeMedium   Size = "medium" // 600px
	SizeLarge    Size = "large"  // 1200px
	SizeOriginal Size = "original"
)

var sizeMap = map[Size]int{
	SizeThumb:    300,
	SizeMedium:   600,
	SizeLarge:    1200,
	SizeOriginal: 0,
}

// Resolve builds the proxied delivery URL for sourceURL at the given size
// class: a square cover crop with WebP output and fallback. SizeOriginal
// proxies without resizing. An empty source yields an empty result; a
// malformed source is passed through to the proxy as-is, and handling an
// invalid upstream URL is the fetch caller's responsibility.
func Resolve(sourceURL string, size Size) string {
	if sourceURL == "" {
		return ""
	}

	dim := sizeMap[size]

	params := url.Values{}
	params.Set("url", sourceURL)
	if dim > 0 {
		params.Set("w", strconv.Itoa(dim))
		params.Set("h", strconv.Itoa(dim))
		params.Set("fit", "cover")
	}
	params.Set("output", "webp")
	params.Set("we", "1")

	return proxyBaseURL + "?" + params.Encode()
}
