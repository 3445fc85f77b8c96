// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/poirisk/internal/adapters/render"
	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ready reports whether the tables are loaded.
	Ready() bool

	// DefaultSelection is used for any selector missing from a request.
	DefaultSelection() model.Selection

	// Read operations expose the dashboard views.
	Options(ctx context.Context) (model.DashboardOptions, error)
	Histogram(ctx context.Context, sel model.Selection) (view.Histogram, error)
	ScatterMap(ctx context.Context, sel model.Selection) (view.ScatterMap, error)
	Image(ctx context.Context, w io.Writer, v interaction.ViewID, sel model.Selection, f render.Format) error
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	optionsHandler  *OptionsHandler
	viewHandler     *ViewHandler
	dispatchHandler *DispatchHandler
}

// NewServer creates a new API server with all handlers. log may be nil.
func NewServer(deps Dependencies, statsProvider StatsProvider, log logger.Logger) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		optionsHandler:  NewOptionsHandler(deps),
		viewHandler:     NewViewHandler(deps, log),
		dispatchHandler: NewDispatchHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/options", MetricsMiddleware(s.optionsHandler.HandleGetOptions, "options"))
	mux.HandleFunc("/api/histogram", MetricsMiddleware(s.viewHandler.HandleGetHistogram, "histogram"))
	mux.HandleFunc("/api/histogram.png", MetricsMiddleware(s.viewHandler.HandleGetHistogramImage, "histogram_image"))
	mux.HandleFunc("/api/map", MetricsMiddleware(s.viewHandler.HandleGetMap, "map"))
	mux.HandleFunc("/api/map.png", MetricsMiddleware(s.viewHandler.HandleGetMapImage, "map_image"))
	mux.HandleFunc("/api/dispatch", MetricsMiddleware(s.dispatchHandler.HandlePostDispatch, "dispatch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before touching the response so an unencodable
// value becomes a 500 rather than a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "encode_error", Message: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// methodNotAllowed writes a 405 naming the accepted method.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
}

// classify maps upstream errors to a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUnknownWeekday):
		return http.StatusBadRequest, "unknown_weekday"
	case errors.Is(err, interaction.ErrUnknownView):
		return http.StatusBadRequest, "unknown_view"
	case errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
