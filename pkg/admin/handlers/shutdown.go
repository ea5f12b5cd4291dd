package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/marmos91/srvkit/pkg/shutdown"
)

// ShutdownRequester accepts shutdown requests.
type ShutdownRequester interface {
	RequestShutdown(source shutdown.Source, reason string) bool
	Request() (shutdown.Request, bool)
}

// ShutdownBody is the optional request body of POST /admin/shutdown.
type ShutdownBody struct {
	Reason string `json:"reason"`
}

// ShutdownResult is the payload of POST /admin/shutdown.
type ShutdownResult struct {
	// Accepted is false when an earlier request already started shutdown.
	Accepted bool             `json:"accepted"`
	Request  shutdown.Request `json:"request"`
}

// DefaultShutdownReason is used when the request carries no reason.
const DefaultShutdownReason = "requested via admin endpoint"

// ShutdownHandler serves POST /admin/shutdown.
type ShutdownHandler struct {
	coordinator ShutdownRequester
}

// NewShutdownHandler creates a shutdown handler.
func NewShutdownHandler(c ShutdownRequester) *ShutdownHandler {
	return &ShutdownHandler{coordinator: c}
}

// Request asks the coordinator to shut down and answers 202 without waiting
// for teardown.
func (h *ShutdownHandler) Request(w http.ResponseWriter, r *http.Request) {
	var body ShutdownBody
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(w, "Invalid request body")
			return
		}
	}
	if body.Reason == "" {
		body.Reason = DefaultShutdownReason
	}

	accepted := h.coordinator.RequestShutdown(shutdown.SourceAdmin, body.Reason)
	req, _ := h.coordinator.Request()
	writeJSON(w, http.StatusAccepted, okResponse(ShutdownResult{Accepted: accepted, Request: req}), false)
}
