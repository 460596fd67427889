// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/pack-sync/internal/httputil"
	"github.com/pdiddy/pack-sync/pkg/types"
)

// maxDatasetBytes bounds a single dataset download.
const maxDatasetBytes = 64 << 20

// HTTPFetcher fetches datasets from a URL prefix. Requests bypass caches
// so a republished dataset is picked up immediately.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
	Config  types.HTTPConfig

	// OnRetry, when set, is told about 429 and 503 retries.
	OnRetry httputil.RetryFunc
}

// NewHTTPFetcher returns a fetcher rooted at baseURL.
func NewHTTPFetcher(baseURL string, cfg types.HTTPConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultTimeout
	}
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Config:  cfg,
	}
}

// Fetch downloads BaseURL + name. Each "/"-separated segment of name is
// path-escaped, so a name may address a subdirectory.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	target := join(f.BaseURL, escapePath(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", name, err)
	}
	ua := f.Config.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, f.Client, req, f.Config.MaxRetries, f.OnRetry)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %d %s", target, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDatasetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s after %v: %w", target, time.Since(start).Round(time.Millisecond), err)
	}
	if len(data) > maxDatasetBytes {
		return nil, fmt.Errorf("dataset %s exceeds %d bytes", name, maxDatasetBytes)
	}
	return data, nil
}

func escapePath(name string) string {
	segs := strings.Split(name, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
