package api

import (
	"net/http"
)

// OptionsHandler serves the selector choices.
type OptionsHandler struct {
	deps Dependencies
}

// NewOptionsHandler creates a new options handler.
func NewOptionsHandler(deps Dependencies) *OptionsHandler {
	return &OptionsHandler{deps: deps}
}

// HandleGetOptions handles GET /api/options requests.
func (h *OptionsHandler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if !h.deps.Ready() {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return
	}
	opts, err := h.deps.Options(r.Context())
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}
