package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/pkg/logger"
)

// Run executes the complete probe.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting dashboard probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("categories", config.Categories),
		logger.String("logFile", config.LogFile),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Fetch selector options
	opts, err := fetchOptions(ctx, config)
	if err != nil {
		return fmt.Errorf("options retrieval failed: %w", err)
	}
	stats.Categories = len(opts.Categories)

	// Step 3: Plan selector changes
	checks, err := planChecks(opts, config.Categories)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	stats.ChecksPlanned = len(checks)

	// Step 4: Dispatch concurrently
	results := dispatchChecks(ctx, config, checks, stats)

	// Step 5: Verify results
	verifyErr := verifyResults(ctx, config, results, stats)

	// Step 6: Save report
	if config.OutputFile != "" {
		if err := saveResultsToFile(ctx, config.OutputFile, results); err != nil {
			logger.Get().Warn(ctx, "failed to save results to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return verifyErr
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d requests failed", ErrBadResponse, stats.Failed, stats.Requests)
	}

	logger.Get().Info(ctx, "probe completed successfully")
	return nil
}

// checkServiceHealth verifies the service is live and its tables are loaded.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	base := strings.TrimRight(config.BaseURL, "/")

	for _, ep := range []struct {
		path string
		err  error
	}{
		{"/healthz", ErrUnhealthy},
		{"/readyz", ErrNotReady},
	} {
		resp, err := client.Get(ctx, base+ep.path)
		if err != nil {
			return fmt.Errorf("failed to connect to service: %w", err)
		}
		if _, err := readResponseBody(resp); err != nil {
			return fmt.Errorf("%s: %w", ep.path, err)
		}
		// /healthz answers with Prometheus metrics; any 200 is healthy.
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s returned status %d", ep.err, ep.path, resp.StatusCode)
		}
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchOptions loads the selector choices offered by the dashboard.
func fetchOptions(ctx context.Context, config *Config) (model.DashboardOptions, error) {
	client := newHTTPClient(config.Timeout)

	var opts model.DashboardOptions
	if err := client.getJSON(ctx, strings.TrimRight(config.BaseURL, "/")+"/api/options", &opts); err != nil {
		return model.DashboardOptions{}, err
	}

	logger.Get().Info(ctx, "fetched options",
		logger.String("title", opts.Title),
		logger.Int("weekdays", len(opts.Weekdays)),
		logger.Int("categories", len(opts.Categories)),
		logger.String("categoryWeekday", opts.CategoryWeekday.String()))
	return opts, nil
}

// saveResultsToFile writes every result as a JSON array.
func saveResultsToFile(ctx context.Context, filename string, results []Result) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to save")
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename) // #nosec G304 -- path comes from the operator
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	logger.Get().Info(ctx, "results saved", logger.String("file", filename), logger.Int("count", len(results)))
	return nil
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, stats *Stats) {
	rate := 0.0
	if stats.Requests > 0 {
		rate = float64(stats.Successful) / float64(stats.Requests) * PercentageMultiplier
	}
	throughput := 0.0
	if secs := stats.Duration.Seconds(); secs > 0 {
		throughput = float64(stats.Requests) / secs
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("categories", stats.Categories),
		logger.Int("checksPlanned", stats.ChecksPlanned),
		logger.Int("requests", stats.Requests),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("emptyViews", stats.EmptyViews),
		logger.Int("violations", stats.Violations),
		logger.Float64("successRatePct", rate),
		logger.Float64("requestsPerSec", throughput),
		logger.Duration("maxLatency", stats.MaxLatency),
		logger.Duration("duration", stats.Duration))
}
