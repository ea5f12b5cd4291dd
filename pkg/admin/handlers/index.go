package handlers

import "net/http"

// Route describes one admin endpoint.
type Route struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// IndexHandler serves GET /admin/.
type IndexHandler struct {
	routes func() []Route
}

// NewIndexHandler creates an index over the routes returned by routes.
func NewIndexHandler(routes func() []Route) *IndexHandler {
	return &IndexHandler{routes: routes}
}

// List returns the route table.
func (h *IndexHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.routes()), isPretty(r))
}
