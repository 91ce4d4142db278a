package handler

import (
	"net/http"

	"github.com/xenking/molino-storefront/internal/oas"
)

// GetMenu returns the catalog, optionally narrowed to ?category=.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.menu.FetchMenu(r.Context())
	if err != nil {
		writeError(w, r, err, errReply{Message: "Failed to load menu items"})
		return
	}
	m = m.Filter(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, oas.NewMenu(m))
}

// GetSquareConfig returns the settings the browser payment form needs.
func (h *Handler) GetSquareConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.payments.Public()
	if err != nil {
		writeError(w, r, err, errReply{})
		return
	}
	writeJSON(w, http.StatusOK, oas.SquareConfig{
		ApplicationID: cfg.ApplicationID,
		LocationID:    cfg.LocationID,
		Environment:   cfg.Environment,
	})
}
