package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/poirisk/internal/adapters/render"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRiskPath sets the risk score CSV path.
func WithRiskPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.riskPath = path
		}
	}
}

// WithPOIPath sets the POI CSV path.
func WithPOIPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.poiPath = path
		}
	}
}

// WithJoinKey joins the tables on a shared column instead of row position.
func WithJoinKey(column string) Option {
	return func(s *Service) { s.joinKey = column }
}

// WithCategoryWeekday sets the weekday the category selector is built from.
func WithCategoryWeekday(w types.Weekday) Option {
	return func(s *Service) {
		if w.Valid() {
			s.categoryWeekday = w
		}
	}
}

// WithDefaultSelection sets the initial selection of both views.
func WithDefaultSelection(sel model.Selection) Option {
	return func(s *Service) {
		if sel.Weekday.Valid() {
			s.defaults = sel
		}
	}
}

// WithMapSettings sets the map viewport and tiles.
func WithMapSettings(settings view.MapSettings) Option {
	return func(s *Service) { s.mapSettings = settings }
}

// WithHistogramBins fixes the histogram bin count. Zero picks it per selection.
func WithHistogramBins(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.bins = n
		}
	}
}

// WithCacheSize bounds the memoised views per panel. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.cacheSize = n
		}
	}
}

// WithChartSize sets the size of rendered images.
func WithChartSize(width, height int) Option {
	return func(s *Service) {
		s.renderer = render.New(render.WithSize(width, height))
	}
}

// WithTitle sets the dashboard heading.
func WithTitle(title string) Option {
	return func(s *Service) {
		if title != "" {
			s.title = title
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}
