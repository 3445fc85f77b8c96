// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and POIRISK_* env vars.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text, json, console or auto.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8050".
	Addr string `koanf:"addr"`

	// RiskCSV and POICSV are the source table paths.
	RiskCSV string `koanf:"risk_csv"`
	POICSV  string `koanf:"poi_csv"`

	// JoinKey names a column present in both tables. Empty joins by row position.
	JoinKey string `koanf:"join_key"`

	// CategoryWeekday is the weekday the selector categories are taken from.
	CategoryWeekday string `koanf:"category_weekday"`

	// DefaultWeekday and DefaultCategory are the initial selection of both panels.
	DefaultWeekday  string `koanf:"default_weekday"`
	DefaultCategory string `koanf:"default_category"`

	// HistogramBins fixes the bin count; 0 picks it from the row count.
	HistogramBins int `koanf:"histogram_bins"`

	// Map viewport and tiles.
	MapCenterLat float64 `koanf:"map_center_lat"`
	MapCenterLon float64 `koanf:"map_center_lon"`
	MapZoom      float64 `koanf:"map_zoom"`
	MapStyle     string  `koanf:"map_style"`
	MapboxToken  string  `koanf:"mapbox_token"`

	// ViewCacheSize bounds the memoised renders per panel.
	ViewCacheSize int `koanf:"view_cache_size"`

	// WarmWorkers prerenders the view caches at startup with this many
	// workers. 0 disables warming.
	WarmWorkers int `koanf:"warm_workers"`

	// ChartWidth and ChartHeight size server-rendered images in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`

	// Title is the page heading.
	Title string `koanf:"title"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":8050",
		RiskCSV:         "risk_score.csv",
		POICSV:          "POI_comm_rates.csv",
		CategoryWeekday: "Mon",
		DefaultWeekday:  "Mon",
		DefaultCategory: "Grocery Stores",
		MapCenterLat:    34,
		MapCenterLon:    -118,
		MapZoom:         8,
		MapStyle:        "basic",
		ViewCacheSize:   256,
		ChartWidth:      800,
		ChartHeight:     480,
		Title:           "Risk Scores of POIs in Los Angeles",
	}
}

// Validate checks value ranges and label formats.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.RiskCSV) == "":
		return fmt.Errorf("%w: risk_csv must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.POICSV) == "":
		return fmt.Errorf("%w: poi_csv must not be empty", ErrInvalidConfig)
	case c.HistogramBins < 0:
		return fmt.Errorf("%w: histogram_bins must not be negative", ErrInvalidConfig)
	case c.MapZoom < 0 || c.MapZoom > 22:
		return fmt.Errorf("%w: map_zoom must be within 0..22", ErrInvalidConfig)
	case c.MapCenterLat < -90 || c.MapCenterLat > 90:
		return fmt.Errorf("%w: map_center_lat out of range", ErrInvalidConfig)
	case c.MapCenterLon < -180 || c.MapCenterLon > 180:
		return fmt.Errorf("%w: map_center_lon out of range", ErrInvalidConfig)
	case c.ViewCacheSize < 0:
		return fmt.Errorf("%w: view_cache_size must not be negative", ErrInvalidConfig)
	case c.WarmWorkers < 0:
		return fmt.Errorf("%w: warm_workers must not be negative", ErrInvalidConfig)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart size must be positive", ErrInvalidConfig)
	}
	if _, err := types.ParseWeekday(c.CategoryWeekday); err != nil {
		return fmt.Errorf("%w: category_weekday: %w", ErrInvalidConfig, err)
	}
	if _, err := types.ParseWeekday(c.DefaultWeekday); err != nil {
		return fmt.Errorf("%w: default_weekday: %w", ErrInvalidConfig, err)
	}
	if _, err := logger.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
