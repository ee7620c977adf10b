package handlers

import "net/http"

// Version is stamped at build time via -ldflags.
var Version = "dev"

type VersionHandler struct{}

func NewVersionHandler() *VersionHandler {
	return &VersionHandler{}
}

func (h *VersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": Version})
}
