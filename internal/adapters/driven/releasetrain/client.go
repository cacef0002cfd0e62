package releasetrain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FeedClient = (*Client)(nil)

const (
	// DefaultBaseURL is the public release-train API
	DefaultBaseURL = "https://releasetrain.io/api"

	// DefaultTimeout bounds a single feed request
	DefaultTimeout = 15 * time.Second

	// maxBodyBytes caps how much of a response is read
	maxBodyBytes = 32 << 20
)

// Client fetches vendor-scoped items from the release-train HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a feed client. Empty baseURL uses DefaultBaseURL and a
// non-positive timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: 2,
		retryDelay: time.Second,
	}
}

// URL returns the vendor-scoped endpoint for a source
func (c *Client) URL(source domain.Source, vendor string) (string, error) {
	var path string
	switch source {
	case domain.SourceOS:
		path = "/component"
	case domain.SourceReddit:
		path = "/reddit"
	default:
		return "", fmt.Errorf("%w: unknown source %q", domain.ErrInvalidInput, source)
	}
	return c.baseURL + path + "?q=" + url.QueryEscape(vendor), nil
}

// Fetch returns the raw items a source holds for vendor.
// Server errors are retried; anything else fails immediately.
func (c *Client) Fetch(ctx context.Context, source domain.Source, vendor string) ([]domain.RawItem, error) {
	endpoint, err := c.URL(source, vendor)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", source, err)
	}

	items, err := ParsePayload(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", source, err)
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "releasetrain-lake")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 300 {
			return body, nil
		}
		if resp.StatusCode < 500 || attempt >= c.maxRetries {
			return nil, fmt.Errorf("feed API error %d: %s", resp.StatusCode, domain.TruncateRunes(string(body), 200))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.retryDelay):
		}
	}
}
