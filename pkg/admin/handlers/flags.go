package handlers

import (
	"net/http"

	"github.com/marmos91/srvkit/pkg/flags"
)

// FlagLister lists registered flags.
type FlagLister interface {
	All() []flags.Info
}

// FlagsHandler serves GET /admin/flags.
type FlagsHandler struct {
	flags FlagLister
}

// NewFlagsHandler creates a flags handler.
func NewFlagsHandler(f FlagLister) *FlagsHandler {
	return &FlagsHandler{flags: f}
}

// List returns every flag with its value, default, help and the source that set it.
func (h *FlagsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := []flags.Info{}
	if h.flags != nil {
		infos = h.flags.All()
	}
	writeJSON(w, http.StatusOK, okResponse(infos), isPretty(r))
}
