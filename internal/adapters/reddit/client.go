package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rotisserie/eris"

	"github.com/okian/orgwatch/internal/domain/model"
	"github.com/okian/orgwatch/pkg/logger"
	"github.com/okian/orgwatch/pkg/metrics"
)

const (
	defaultUserAgent = "orgwatch/1.0"
	defaultAttempts  = 3
	defaultDelay     = 500 * time.Millisecond
	maxJitter        = 250 * time.Millisecond
	maxBodyBytes     = 32 << 20
)

// HTTPError reports a non-200 response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("reddit: %s returned %d", e.URL, e.StatusCode)
}

// Client fetches listing JSON over HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	attempts  uint
	delay     time.Duration
	logger    logger.Logger
}

// NewClient returns a Client with sane defaults overridden by opts.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
		attempts:  defaultAttempts,
		delay:     defaultDelay,
		logger:    logger.Get().Named("reddit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads a listing and parses it into raw items. Thread and
// subreddit URLs without a .json suffix get one.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]model.RawItem, error) {
	target, err := ListingURL(rawURL)
	if err != nil {
		return nil, err
	}

	body, err := retry.DoWithData(
		func() ([]byte, error) { return c.get(ctx, target) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxJitter(maxJitter),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			metrics.RecordFetchRetry()
			c.logger.Debug(ctx, "retrying listing fetch",
				logger.Int("attempt", int(n)+1),
				logger.String("url", target),
				logger.Error(err),
			)
		}),
	)
	if err != nil {
		metrics.RecordErrorByComponent("reddit", "fetch_failed")
		return nil, eris.Wrapf(err, "reddit: fetch %s", target)
	}
	return ParseListing(body)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: target}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// isRetryable reports transient failures: throttling, 5xx and network errors.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// ListingURL normalizes a Reddit page URL to its JSON listing form.
func ListingURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", eris.Wrapf(err, "reddit: parse url %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", eris.Errorf("reddit: not an absolute http url: %q", raw)
	}
	if !strings.HasSuffix(u.Path, ".json") {
		u.Path = strings.TrimSuffix(u.Path, "/") + ".json"
	}
	return u.String(), nil
}
