package handlers

import (
	"net/http"

	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/shutdown"
)

// Health states reported in HealthStatus.State.
const (
	StateOK           = "ok"
	StateFailed       = "failed"
	StateShuttingDown = "shutting_down"
)

// StatusProvider reports orchestrator progress.
type StatusProvider interface {
	Status() lifecycle.Status
}

// ShutdownState reports whether shutdown has been requested.
type ShutdownState interface {
	Request() (shutdown.Request, bool)
}

// HealthStatus is the payload of GET /admin/health.
type HealthStatus struct {
	Phase       lifecycle.Phase   `json:"phase"`
	State       string            `json:"state"`
	FailedPhase lifecycle.Phase   `json:"failed_phase,omitempty"`
	Error       string            `json:"error,omitempty"`
	Shutdown    *shutdown.Request `json:"shutdown,omitempty"`
}

// HealthHandler serves GET /admin/health.
type HealthHandler struct {
	status   StatusProvider
	shutdown ShutdownState
}

// NewHealthHandler creates a health handler. Either dependency may be nil.
func NewHealthHandler(status StatusProvider, sd ShutdownState) *HealthHandler {
	return &HealthHandler{status: status, shutdown: sd}
}

// Check reports the current phase. A recorded failure answers 503 with the
// failed phase and error; a pending shutdown answers 503 as well so load
// balancers drain the instance.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	hs := HealthStatus{State: StateOK}
	if h.status != nil {
		st := h.status.Status()
		hs.Phase = st.Phase
		if st.Failed() {
			hs.State = StateFailed
			hs.FailedPhase = st.FailedPhase
			hs.Error = st.Err.Error()
		}
	}
	if h.shutdown != nil {
		if req, ok := h.shutdown.Request(); ok {
			hs.Shutdown = &req
			if hs.State == StateOK {
				hs.State = StateShuttingDown
			}
		}
	}

	if hs.State == StateOK {
		writeJSON(w, http.StatusOK, healthyResponse(hs), false)
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(hs, hs.Error), false)
}

// Ping serves GET /admin/ping.
func Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
