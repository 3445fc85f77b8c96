// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/okian/poirisk/internal/adapters/dataset"
	"github.com/okian/poirisk/internal/adapters/mq/queue"
	"github.com/okian/poirisk/internal/adapters/mq/worker"
	"github.com/okian/poirisk/internal/adapters/render"
	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/riskday"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
	"github.com/okian/poirisk/pkg/metrics"
)

// DefaultTitle is the dashboard heading.
const DefaultTitle = "Risk Scores of POIs in Los Angeles"

// Service loads the datasets once and serves views over the immutable tables.
type Service struct {
	mu sync.RWMutex

	// Configuration
	riskPath        string
	poiPath         string
	joinKey         string
	categoryWeekday types.Weekday
	defaults        model.Selection
	mapSettings     view.MapSettings
	bins            int
	cacheSize       int
	title           string
	renderer        *render.Renderer
	clock           clockwork.Clock

	// State, read-only after Start
	started      bool
	mode         riskday.JoinMode
	riskRows     int
	poiRows      int
	table        model.WeekdayTable
	categories   model.CategorySet
	reports      []riskday.Report
	stale        map[types.Weekday][]string
	loadedAt     time.Time
	loadDuration time.Duration
	warmed       int

	// Per-view memoised results
	histograms *lru.Cache[model.Selection, view.Histogram]
	maps       *lru.Cache[model.Selection, view.ScatterMap]

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		riskPath:        dataset.DefaultRiskPath,
		poiPath:         dataset.DefaultPOIPath,
		categoryWeekday: types.Monday,
		defaults:        interaction.DefaultSelection(),
		mapSettings:     view.DefaultMapSettings(),
		cacheSize:       256,
		title:           DefaultTitle,
		renderer:        render.New(),
		clock:           clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads both tables, assembles every weekday and derives the category
// index. Any load error is returned unchanged in kind.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "loading datasets...",
		logger.String("risk", s.riskPath),
		logger.String("poi", s.poiPath),
	)

	start := s.clock.Now()
	src, err := dataset.NewLoader(
		dataset.WithRiskPath(s.riskPath),
		dataset.WithPOIPath(s.poiPath),
		dataset.WithJoinKey(s.joinKey),
	).Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoad, err)
	}

	s.mode = riskday.JoinPositional
	if s.joinKey != "" {
		s.mode = riskday.JoinKey
	}
	asm := riskday.New(src.Risk, src.POI, riskday.WithJoinMode(s.mode))
	s.table, s.reports = asm.BuildTable()
	s.categories = riskday.CategoryIndex(s.categoryWeekday, s.table.Get(s.categoryWeekday))
	s.stale = riskday.Staleness(s.table, s.categories)
	s.riskRows, s.poiRows = len(src.Risk), len(src.POI)

	if s.mode == riskday.JoinPositional {
		s.logger.Warn(ctx, "risk rows are paired with POI rows by position; set join_key to join on a column",
			logger.Int("riskRows", s.riskRows),
			logger.Int("poiRows", s.poiRows),
		)
	}

	for _, rep := range s.reports {
		metrics.UpdateWeekdayRecords(rep.Weekday.String(), rep.Kept, rep.Dropped)
		if rep.Dropped > 0 {
			s.logger.Debug(ctx, "dropped incomplete records",
				logger.String("weekday", rep.Weekday.String()),
				logger.Int("dropped", rep.Dropped),
			)
		}
	}

	staleTotal := 0
	for _, w := range types.Weekdays() {
		missing := s.stale[w]
		if len(missing) == 0 {
			continue
		}
		staleTotal += len(missing)
		s.logger.Warn(ctx, "categories missing from selector",
			logger.String("weekday", w.String()),
			logger.String("source", s.categoryWeekday.String()),
			logger.Any("categories", missing),
		)
	}
	metrics.UpdateCategoryCount(s.categories.Len(), staleTotal)

	if s.cacheSize > 0 {
		// lru.New only fails for non-positive sizes.
		s.histograms, _ = lru.New[model.Selection, view.Histogram](s.cacheSize)
		s.maps, _ = lru.New[model.Selection, view.ScatterMap](s.cacheSize)
	}

	s.loadedAt = s.clock.Now()
	s.loadDuration = s.loadedAt.Sub(start)
	s.warmed = 0
	s.started = true
	s.logger.Info(ctx, "dashboard service started",
		logger.String("joinMode", s.mode.String()),
		logger.Int("records", s.table.Total()),
		logger.Int("categories", s.categories.Len()),
		logger.Duration("took", src.LoadedIn),
	)

	return nil
}

// Stop releases the view caches.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.histograms != nil {
		s.histograms.Purge()
	}
	if s.maps != nil {
		s.maps.Purge()
	}

	s.started = false
	s.logger.Info(context.Background(), "dashboard service stopped")
}

// DefaultSelection returns the initial selection of both views.
func (s *Service) DefaultSelection() model.Selection {
	return s.defaults
}

// Options returns the selector choices.
func (s *Service) Options(_ context.Context) (model.DashboardOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.DashboardOptions{}, ErrNotStarted
	}

	defaults := make(map[string]model.Selection, len(interaction.Views()))
	for _, v := range interaction.Views() {
		defaults[string(v)] = s.defaults
	}
	return model.DashboardOptions{
		Title:           s.title,
		AccentColor:     view.DefaultBarColor,
		Weekdays:        types.WeekdayOptions(),
		Categories:      s.categories.Labels(),
		CategoryWeekday: s.categories.Source(),
		Defaults:        defaults,
	}, nil
}

// Histogram renders the histogram view for sel.
func (s *Service) Histogram(ctx context.Context, sel model.Selection) (view.Histogram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(sel); err != nil {
		return view.Histogram{}, err
	}

	if s.histograms != nil {
		if h, ok := s.histograms.Get(sel); ok {
			metrics.RecordViewCache(string(interaction.ViewHistogram), true)
			return h, nil
		}
		metrics.RecordViewCache(string(interaction.ViewHistogram), false)
	}

	start := s.clock.Now()
	h := view.BuildHistogram(s.table.Get(sel.Weekday), sel, view.WithBins(s.bins))
	metrics.RecordViewRender(string(interaction.ViewHistogram), h.Count, msSince(s.clock, start))

	if s.histograms != nil {
		s.histograms.Add(sel, h)
	}
	s.logger.Debug(ctx, "histogram rendered",
		logger.String("weekday", sel.Weekday.String()),
		logger.String("category", sel.Category),
		logger.Int("rows", h.Count),
		logger.Int("bins", len(h.Bins)),
	)
	return h, nil
}

// ScatterMap renders the map view for sel.
func (s *Service) ScatterMap(ctx context.Context, sel model.Selection) (view.ScatterMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.check(sel); err != nil {
		return view.ScatterMap{}, err
	}

	if s.maps != nil {
		if m, ok := s.maps.Get(sel); ok {
			metrics.RecordViewCache(string(interaction.ViewMap), true)
			return m, nil
		}
		metrics.RecordViewCache(string(interaction.ViewMap), false)
	}

	start := s.clock.Now()
	m := view.BuildScatterMap(s.table.Get(sel.Weekday), sel, s.mapSettings)
	metrics.RecordViewRender(string(interaction.ViewMap), m.Count, msSince(s.clock, start))

	if s.maps != nil {
		s.maps.Add(sel, m)
	}
	s.logger.Debug(ctx, "map rendered",
		logger.String("weekday", sel.Weekday.String()),
		logger.String("category", sel.Category),
		logger.Int("markers", m.Count),
	)
	return m, nil
}

// Render recomputes only the named view.
func (s *Service) Render(ctx context.Context, v interaction.ViewID, sel model.Selection) (any, error) {
	switch v {
	case interaction.ViewHistogram:
		return s.Histogram(ctx, sel)
	case interaction.ViewMap:
		return s.ScatterMap(ctx, sel)
	default:
		return nil, fmt.Errorf("%w: %q", interaction.ErrUnknownView, v)
	}
}

// Image draws the named view to w.
func (s *Service) Image(ctx context.Context, w io.Writer, v interaction.ViewID, sel model.Selection, f render.Format) error {
	switch v {
	case interaction.ViewHistogram:
		h, err := s.Histogram(ctx, sel)
		if err != nil {
			return err
		}
		return s.renderer.Histogram(w, h, f)
	case interaction.ViewMap:
		m, err := s.ScatterMap(ctx, sel)
		if err != nil {
			return err
		}
		return s.renderer.ScatterMap(w, m, f)
	default:
		return fmt.Errorf("%w: %q", interaction.ErrUnknownView, v)
	}
}

// Ready reports whether the tables are loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// check must be called with s.mu held.
func (s *Service) check(sel model.Selection) error {
	if !s.started {
		return ErrNotStarted
	}
	if !sel.Weekday.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownWeekday, sel.Weekday)
	}
	return nil
}

// Warm prerenders both views for every weekday and selector category into
// the view caches using a pool of workers, starting with the default
// selection. At most the cache size of selections is warmed per view. It
// returns the number of views rendered and is a no-op when caching is off.
func (s *Service) Warm(ctx context.Context, workers int) (int, error) {
	jobs, err := s.warmJobs()
	if err != nil || len(jobs) == 0 {
		return 0, err
	}

	q := queue.NewInMemoryQueue[worker.Job](
		queue.WithCapacity(len(jobs)),
		queue.WithObserver(warmObserver{}),
	)
	for _, j := range jobs {
		if !q.Enqueue(ctx, j) {
			break
		}
	}
	_ = q.Close()

	start := s.clock.Now()
	pool := worker.NewPool(workers, q, s, worker.WithLogger(s.logger.Named("warm")))
	pool.Start(ctx)
	err = pool.Wait(ctx)

	s.mu.Lock()
	s.warmed += pool.Processed()
	s.mu.Unlock()

	s.logger.Info(ctx, "view caches warmed",
		logger.Int("jobs", len(jobs)),
		logger.Int("rendered", pool.Processed()),
		logger.Int("failed", pool.Failed()),
		logger.Int("workers", pool.Size()),
		logger.Duration("took", s.clock.Since(start)),
	)
	return pool.Processed(), err
}

func (s *Service) warmJobs() ([]worker.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if s.cacheSize <= 0 {
		return nil, nil
	}

	sels := []model.Selection{s.defaults}
	for _, w := range types.Weekdays() {
		for _, c := range s.categories.Labels() {
			sel := model.Selection{Weekday: w, Category: c}
			if sel != s.defaults {
				sels = append(sels, sel)
			}
		}
	}
	if len(sels) > s.cacheSize {
		sels = sels[:s.cacheSize]
	}

	jobs := make([]worker.Job, 0, len(sels)*len(interaction.Views()))
	for _, sel := range sels {
		for _, v := range interaction.Views() {
			jobs = append(jobs, worker.Job{View: v, Selection: sel})
		}
	}
	return jobs, nil
}

type warmObserver struct{}

func (warmObserver) Size(n int)             { metrics.UpdateWarmQueueSize(n) }
func (warmObserver) Rejected(reason string) { metrics.RecordWarmQueueReject(reason) }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"riskPath":        s.riskPath,
		"poiPath":         s.poiPath,
		"categoryWeekday": s.categoryWeekday.String(),
		"cacheSize":       s.cacheSize,
	}

	if !s.started {
		return stats
	}

	records := make(map[string]int, len(s.reports))
	dropped := make(map[string]int, len(s.reports))
	for _, rep := range s.reports {
		records[rep.Weekday.String()] = rep.Kept
		dropped[rep.Weekday.String()] = rep.Dropped
	}

	stale := make(map[string][]string, len(s.stale))
	for w, cats := range s.stale {
		sorted := append([]string(nil), cats...)
		sort.Strings(sorted)
		stale[w.String()] = sorted
	}

	stats["joinMode"] = s.mode.String()
	stats["riskRows"] = s.riskRows
	stats["poiRows"] = s.poiRows
	stats["records"] = records
	stats["dropped"] = dropped
	stats["totalRecords"] = s.table.Total()
	stats["categories"] = s.categories.Len()
	stats["staleCategories"] = stale
	stats["loadedAt"] = s.loadedAt.UTC().Format(time.RFC3339)
	stats["loadDurationMs"] = s.loadDuration.Milliseconds()
	stats["warmedViews"] = s.warmed
	if s.histograms != nil {
		stats["histogramCacheLen"] = s.histograms.Len()
		stats["mapCacheLen"] = s.maps.Len()
	}

	return stats
}

func msSince(clock clockwork.Clock, start time.Time) float64 {
	return float64(clock.Since(start).Microseconds()) / 1000
}
