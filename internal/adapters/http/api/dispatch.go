package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/types"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

// maxDispatchBody bounds the request body.
const maxDispatchBody = 64 << 10

// dispatchRequest carries the full selection of the view whose selector
// changed. Omitted fields fall back to the defaults.
type dispatchRequest struct {
	View     string  `json:"view"`
	Weekday  *string `json:"weekday,omitempty"`
	Category *string `json:"category,omitempty"`
}

// dispatchResponse holds exactly one recomputed view.
type dispatchResponse struct {
	View      interaction.ViewID `json:"view"`
	Histogram *view.Histogram    `json:"histogram,omitempty"`
	Map       *view.ScatterMap   `json:"map,omitempty"`
}

// DispatchHandler recomputes the single view named by a selector change.
type DispatchHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewDispatchHandler creates a new dispatch handler. log may be nil.
func NewDispatchHandler(deps Dependencies, log logger.Logger) *DispatchHandler {
	return &DispatchHandler{deps: deps, log: log}
}

// HandlePostDispatch handles POST /api/dispatch requests.
func (h *DispatchHandler) HandlePostDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	if !h.deps.Ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return
	}

	var req dispatchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDispatchBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	v, err := interaction.ParseView(req.View)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sel := h.deps.DefaultSelection()
	if req.Weekday != nil {
		wd, err := types.ParseWeekday(*req.Weekday)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		sel.Weekday = wd
	}
	if req.Category != nil {
		sel.Category = *req.Category
	}

	resp := dispatchResponse{View: v}
	switch v {
	case interaction.ViewHistogram:
		out, err := h.deps.Histogram(r.Context(), sel)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Histogram = &out
	case interaction.ViewMap:
		out, err := h.deps.ScatterMap(r.Context(), sel)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		resp.Map = &out
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DispatchHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && h.log != nil {
		h.log.Error(r.Context(), "dispatch failed",
			logger.String("requestID", RequestID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
