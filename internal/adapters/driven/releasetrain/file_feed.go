package releasetrain

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FeedClient = (*FileFeed)(nil)

// FileFeed serves items from "<dir>/<source>.json" for offline runs.
// Items are filtered to those mentioning the vendor in any field; a
// missing file is an empty feed.
type FileFeed struct {
	dir string
}

// NewFileFeed creates a feed over a directory of saved payloads
func NewFileFeed(dir string) *FileFeed {
	return &FileFeed{dir: dir}
}

// NewFeedClient picks the feed for a base URL. A file:// base reads saved
// payloads from disk; anything else is the HTTP API.
func NewFeedClient(baseURL string, opts ...ClientOption) driven.FeedClient {
	if dir, ok := strings.CutPrefix(baseURL, "file://"); ok {
		return NewFileFeed(dir)
	}
	c := NewClient(baseURL, 0)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClientOption tweaks an HTTP feed client
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Fetch returns the saved items for source that mention vendor
func (f *FileFeed) Fetch(ctx context.Context, source domain.Source, vendor string) ([]domain.RawItem, error) {
	if _, err := domain.ParseSource(string(source)); err != nil {
		return nil, err
	}

	items, err := ReadItemsFile(filepath.Join(f.dir, string(source)+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" {
		return items, nil
	}

	var out []domain.RawItem
	for _, item := range items {
		if mentions(item, vendor) {
			out = append(out, item)
		}
	}
	return out, nil
}

func mentions(item domain.RawItem, vendor string) bool {
	raw, err := json.Marshal(item)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(raw)), vendor)
}
