package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/okian/poirisk/internal/adapters/render"
	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/pkg/logger"
)

// ViewHandler serves the histogram and map views as JSON or images.
type ViewHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewViewHandler creates a new view handler. log may be nil.
func NewViewHandler(deps Dependencies, log logger.Logger) *ViewHandler {
	return &ViewHandler{deps: deps, log: log}
}

// HandleGetHistogram handles GET /api/histogram?weekday=&category= requests.
func (h *ViewHandler) HandleGetHistogram(w http.ResponseWriter, r *http.Request) {
	if !h.precheck(w, r) {
		return
	}
	sel, err := selectionFromQuery(r.URL.Query(), h.deps.DefaultSelection())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.deps.Histogram(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetMap handles GET /api/map?weekday=&category= requests.
func (h *ViewHandler) HandleGetMap(w http.ResponseWriter, r *http.Request) {
	if !h.precheck(w, r) {
		return
	}
	sel, err := selectionFromQuery(r.URL.Query(), h.deps.DefaultSelection())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.deps.ScatterMap(r.Context(), sel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetHistogramImage handles GET /api/histogram.png requests.
func (h *ViewHandler) HandleGetHistogramImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, interaction.ViewHistogram)
}

// HandleGetMapImage handles GET /api/map.png requests.
func (h *ViewHandler) HandleGetMapImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, interaction.ViewMap)
}

func (h *ViewHandler) serveImage(w http.ResponseWriter, r *http.Request, v interaction.ViewID) {
	if !h.precheck(w, r) {
		return
	}
	q := r.URL.Query()
	format, err := render.ParseFormat(q.Get(paramFormat))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sel, err := selectionFromQuery(q, h.deps.DefaultSelection())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// Rendered into a buffer so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := h.deps.Image(r.Context(), &buf, v, sel, format); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// precheck rejects non-GET requests and requests before the data is loaded.
func (h *ViewHandler) precheck(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return false
	}
	if !h.deps.Ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return false
	}
	return true
}

func (h *ViewHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError && h.log != nil {
		h.log.Error(r.Context(), "view request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", RequestID(r.Context())),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
