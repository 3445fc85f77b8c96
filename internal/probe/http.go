package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body and the given request id.
func (c *HTTPClient) Post(ctx context.Context, url string, body any, requestID string) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d: %s", ErrBadResponse, url, resp.StatusCode, truncate(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrBadResponse, url, err)
	}
	return nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(resp.Body)
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

// dispatchRequest mirrors the body accepted by /api/dispatch. Both
// selectors are always sent so the server defaults never apply.
type dispatchRequest struct {
	View     string `json:"view"`
	Weekday  string `json:"weekday"`
	Category string `json:"category"`
}

type dispatchResponse struct {
	View      string           `json:"view"`
	Histogram *view.Histogram  `json:"histogram,omitempty"`
	Map       *view.ScatterMap `json:"map,omitempty"`
}

// dispatchChecks issues every check concurrently using a worker pool.
// Results keep the order of checks.
func dispatchChecks(ctx context.Context, config *Config, checks []Check, stats *Stats) []Result {
	logger.Get().Info(ctx, "dispatching selector changes",
		logger.Int("checks", len(checks)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := strings.TrimRight(config.BaseURL, "/") + "/api/dispatch"

	results := make([]Result, len(checks))
	var (
		successful int64
		failed     int64
		empty      int64
		lastReport atomic.Int64
	)

	workers := config.Workers
	if workers < 1 {
		workers = 1
	}

	indexChan := make(chan int, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					results[index] = Result{Check: checks[index], Err: ctx.Err().Error()}
					atomic.AddInt64(&failed, 1)
					continue
				default:
				}

				res := dispatchSingle(ctx, client, url, checks[index])
				results[index] = res

				switch {
				case res.Failed():
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "check failed",
							logger.String("view", string(res.Check.View)),
							logger.String("weekday", res.Check.Selection.Weekday.String()),
							logger.String("category", res.Check.Selection.Category),
							logger.String("requestID", res.RequestID),
							logger.String("error", res.Err))
					}
				default:
					atomic.AddInt64(&successful, 1)
					if res.Count == 0 {
						atomic.AddInt64(&empty, 1)
					}
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					succ := atomic.LoadInt64(&successful)
					fail := atomic.LoadInt64(&failed)
					logger.Get().Info(ctx, "dispatch progress",
						logger.Int("done", int(succ+fail)),
						logger.Int("total", len(checks)),
						logger.Int("successful", int(succ)),
						logger.Int("failed", int(fail)))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range checks {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	wg.Wait()

	// Checks never handed to a worker after cancellation.
	for i := range results {
		if results[i].Check.View == "" {
			results[i] = Result{Check: checks[i], Err: "not dispatched"}
			atomic.AddInt64(&failed, 1)
		}
	}

	stats.Requests = len(checks)
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.EmptyViews = int(atomic.LoadInt64(&empty))
	for _, r := range results {
		if r.Latency > stats.MaxLatency {
			stats.MaxLatency = r.Latency
		}
	}

	logger.Get().Info(ctx, "dispatch completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("emptyViews", stats.EmptyViews))

	return results
}

// dispatchSingle posts one selector change and decodes the recomputed view.
func dispatchSingle(ctx context.Context, client *HTTPClient, url string, check Check) Result {
	res := Result{Check: check, RequestID: uuid.NewString()}

	body := dispatchRequest{
		View:     string(check.View),
		Weekday:  check.Selection.Weekday.String(),
		Category: check.Selection.Category,
	}

	start := time.Now()
	resp, err := client.Post(ctx, url, body, res.RequestID)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	data, err := readResponseBody(resp)
	res.Latency = time.Since(start)
	res.Status = resp.StatusCode
	res.Echoed = resp.Header.Get(requestIDHeader)
	if err != nil {
		res.Err = err.Error()
		return res
	}

	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(data))
		return res
	}

	var out dispatchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		res.Err = fmt.Sprintf("decode: %v", err)
		return res
	}

	switch {
	case out.View != string(check.View):
		res.Err = fmt.Sprintf("response names view %q", out.View)
	case out.Histogram != nil:
		res.Histogram = out.Histogram
		res.Count = out.Histogram.Count
	case out.Map != nil:
		res.Map = out.Map
		res.Count = out.Map.Count
	default:
		res.Err = "response carries no view"
	}
	return res
}
