package resource

import (
	"fmt"
	"strings"

	"waterfall/pkg/images"
	stdnet "waterfall/std/net"
)

// Fetcher retrieves resources by URI.
type Fetcher interface {
	Fetch(uri string) (body []byte, contentType string, err error)
}

// DefaultFetcher fetches resources over HTTP/HTTPS, resolving relative URIs
// against a base URL.
type DefaultFetcher struct {
	baseURL string
}

// NewFetcher creates a DefaultFetcher with the given base URL.
func NewFetcher(baseURL string) *DefaultFetcher {
	return &DefaultFetcher{baseURL: baseURL}
}

// Fetch retrieves the resource at the given URI.
func (f *DefaultFetcher) Fetch(uri string) ([]byte, string, error) {
	resolved := uri
	if !stdnet.IsNetworkURL(uri) && f.baseURL != "" {
		resolved = stdnet.ResolveURL(f.baseURL, uri)
	}
	if !stdnet.IsNetworkURL(resolved) {
		return nil, "", fmt.Errorf("cannot fetch non-network URI: %s", resolved)
	}
	return stdnet.Fetch(resolved)
}

// ImageFetcher adapts a Fetcher to the decoder's fetch hook. Responses that
// declare a non-image content type are rejected.
func ImageFetcher(f Fetcher) images.ImageFetcher {
	return func(uri string) ([]byte, error) {
		body, contentType, err := f.Fetch(uri)
		if err != nil {
			return nil, err
		}
		ct := strings.ToLower(contentType)
		if ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
			return nil, fmt.Errorf("unexpected content type for image: %s", contentType)
		}
		return body, nil
	}
}
