package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

// Command builds the riskprobe CLI.
func Command() *cli.Command {
	config := NewConfig()

	return &cli.Command{
		Name:  "riskprobe",
		Usage: "Walk every selector of a running POI risk dashboard and verify each recomputed view",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Usage:       "Base URL of the dashboard",
				Value:       DefaultBaseURL,
				Sources:     cli.EnvVars("RISKPROBE_URL"),
				Destination: &config.BaseURL,
			},
			&cli.IntFlag{
				Name:        "workers",
				Usage:       "Number of concurrent workers",
				Value:       runtime.NumCPU() * WorkerChannelMultiplier,
				Sources:     cli.EnvVars("RISKPROBE_WORKERS"),
				Destination: &config.Workers,
			},
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "HTTP request timeout",
				Value:       DefaultTimeout,
				Sources:     cli.EnvVars("RISKPROBE_TIMEOUT"),
				Destination: &config.Timeout,
			},
			&cli.StringSliceFlag{
				Name:        "category",
				Usage:       "Probe only these categories (repeatable)",
				Sources:     cli.EnvVars("RISKPROBE_CATEGORIES"),
				Destination: &config.Categories,
			},
			&cli.FloatFlag{
				Name:        "center-lat",
				Usage:       "Expected map center latitude",
				Value:       view.DefaultCenterLat,
				Sources:     cli.EnvVars("RISKPROBE_CENTER_LAT"),
				Destination: &config.Center.Lat,
			},
			&cli.FloatFlag{
				Name:        "center-lon",
				Usage:       "Expected map center longitude",
				Value:       view.DefaultCenterLon,
				Sources:     cli.EnvVars("RISKPROBE_CENTER_LON"),
				Destination: &config.Center.Lon,
			},
			&cli.FloatFlag{
				Name:        "zoom",
				Usage:       "Expected map zoom",
				Value:       view.DefaultZoom,
				Sources:     cli.EnvVars("RISKPROBE_ZOOM"),
				Destination: &config.Zoom,
			},
			&cli.StringFlag{
				Name:        "output",
				Usage:       "Write every check result to this JSON file",
				Sources:     cli.EnvVars("RISKPROBE_OUTPUT"),
				Destination: &config.OutputFile,
			},
			&cli.StringFlag{
				Name:        "log",
				Usage:       "Also write logs to this file",
				Category:    "Logging",
				Sources:     cli.EnvVars("RISKPROBE_LOG"),
				Destination: &config.LogFile,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log format (text, json, console, auto)",
				Category:    "Logging",
				Value:       string(logger.FormatAuto),
				Sources:     cli.EnvVars("RISKPROBE_LOG_FORMAT"),
				Destination: &config.LogFormat,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "Log every failed check and violation",
				Category:    "Logging",
				Sources:     cli.EnvVars("RISKPROBE_VERBOSE"),
				Destination: &config.Verbose,
			},
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			if err := SetupLogging(config.LogFile, config.LogFormat, config.Verbose); err != nil {
				return nil, err
			}
			return ctx, nil
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			ctx, cancel := context.WithTimeout(ctx, DefaultRunTimeout)
			defer cancel()
			return Run(ctx, config)
		},
	}
}

// SetupLogging configures the global logger, mirroring output to logFile
// when one is given.
func SetupLogging(logFile, format string, verbose bool) error {
	f, err := logger.ParseFormat(format)
	if err != nil {
		return goerr.Wrap(err, "invalid log format", goerr.V("format", format))
	}

	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission) // #nosec G304 -- operator supplied
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}

	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}
	return logger.Init(logger.WithWriter(w), logger.WithFormat(f))
}
