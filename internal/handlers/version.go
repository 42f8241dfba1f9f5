package handlers

import (
	"net/http"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/config"
)

// GetVersion returns the application version and build information.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, config.GetBuildInfo())
}
