// Package admin provides the twin's control plane: the testing reset hook the
// scenario runner calls before every scenario, plus state inspection and
// fault injection used by the runner's own tests.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wondertwin-ai/blogcheck/internal/twin/twincore"
)

// ResetPath is where the blog application exposes its testing reset hook.
const ResetPath = "/api/testing/reset"

// StateStore is implemented by the twin's storage.
type StateStore interface {
	// Snapshot returns the full state as a JSON-serializable value.
	Snapshot() any
	// Reset empties all state.
	Reset()
}

// Handler serves the control plane endpoints.
type Handler struct {
	state StateStore
	mw    *twincore.Middleware
}

// NewHandler creates a control plane handler.
func NewHandler(state StateStore, mw *twincore.Middleware) *Handler {
	return &Handler{state: state, mw: mw}
}

// Routes mounts the control plane on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post(ResetPath, h.handleReset)
	r.Route("/admin", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Post("/fault/*", h.handleInjectFault)
		r.Delete("/fault/*", h.handleRemoveFault)
		r.Get("/faults", h.handleListFaults)
		r.Get("/requests", h.handleGetRequests)
		r.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	h.mw.ReqLog.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.state.Snapshot())
}

// faultPath turns the wildcard into the absolute request path to fault,
// e.g. POST /admin/fault/api/users faults /api/users.
func faultPath(r *http.Request) string {
	return "/" + chi.URLParam(r, "*")
}

func (h *Handler) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	var fault twincore.Fault
	if err := json.NewDecoder(r.Body).Decode(&fault); err != nil {
		twincore.Error(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	path := faultPath(r)
	h.mw.Faults.Set(path, fault)
	twincore.JSON(w, http.StatusOK, map[string]any{
		"status":   "injected",
		"endpoint": path,
		"fault":    fault,
	})
}

func (h *Handler) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	path := faultPath(r)
	if !h.mw.Faults.Remove(path) {
		twincore.Error(w, http.StatusNotFound, "no fault registered for "+path)
		return
	}
	twincore.JSON(w, http.StatusOK, map[string]any{"status": "removed", "endpoint": path})
}

func (h *Handler) handleListFaults(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, h.mw.Faults.All())
}

// handleGetRequests lists recorded requests, optionally only those under
// ?path=<prefix>.
func (h *Handler) handleGetRequests(w http.ResponseWriter, r *http.Request) {
	if prefix := r.URL.Query().Get("path"); prefix != "" {
		entries := h.mw.ReqLog.Matching(prefix)
		if entries == nil {
			entries = []twincore.RequestLogEntry{}
		}
		twincore.JSON(w, http.StatusOK, entries)
		return
	}
	twincore.JSON(w, http.StatusOK, h.mw.ReqLog.Entries())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	twincore.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
