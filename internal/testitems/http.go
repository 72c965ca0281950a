package testitems

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/orgwatch/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and decodes a JSON body into out when the
// status is 200. It returns the status code.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) (int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// submitRuns posts every batch with at most config.Workers in flight and
// returns the ids the service accepted.
func submitRuns(ctx context.Context, config *Config, client *HTTPClient, batches []Batch, stats *Stats) ([]string, error) {
	logger.Get().Info(ctx, "submitting runs",
		logger.Int("runs", len(batches)),
		logger.Int("workers", config.Workers))

	var accepted, duplicate, rejected, failed atomic.Int64
	ok := make([]bool, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for i, b := range batches {
		g.Go(func() error {
			var ack AckResponse
			status, err := client.Post(gctx, "/runs", b, &ack)
			switch {
			case err != nil:
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
			case status == http.StatusAccepted:
				accepted.Add(1)
				ok[i] = true
			case status == http.StatusOK && ack.Duplicate:
				duplicate.Add(1)
			case status == http.StatusTooManyRequests:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
			if config.Verbose {
				logger.Get().Debug(gctx, "run submitted",
					logger.String("run_id", b.RunID),
					logger.Int("status", status))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.RunsSubmitted = len(batches)
	stats.RunsAccepted = int(accepted.Load())
	stats.RunsDuplicate = int(duplicate.Load())
	stats.RunsRejected = int(rejected.Load())
	stats.RunsFailed = int(failed.Load())

	ids := make([]string, 0, stats.RunsAccepted)
	for i, b := range batches {
		if ok[i] {
			ids = append(ids, b.RunID)
		}
	}
	logger.Get().Info(ctx, "run submission completed",
		logger.Int("accepted", stats.RunsAccepted),
		logger.Int("duplicate", stats.RunsDuplicate),
		logger.Int("rejected", stats.RunsRejected),
		logger.Int("failed", stats.RunsFailed))
	return ids, nil
}

// waitForRuns polls every accepted run until it completes or fails.
func waitForRuns(ctx context.Context, config *Config, client *HTTPClient, ids []string, stats *Stats) error {
	ctx, cancel := context.WithTimeout(ctx, config.WaitTimeout)
	defer cancel()

	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for len(pending) > 0 {
		for id := range pending {
			var run RunStatus
			status, err := client.Get(ctx, "/runs/"+id, &run)
			if err != nil {
				if ctx.Err() != nil {
					break
				}
				continue
			}
			if status != http.StatusOK {
				continue
			}
			switch run.Status {
			case statusCompleted:
				stats.RunsCompleted++
				delete(pending, id)
			case statusFailed:
				stats.RunsFailed++
				logger.Get().Warn(ctx, "run failed", logger.String("run_id", id), logger.String("error", run.Error))
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d runs still pending: %w", len(pending), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
