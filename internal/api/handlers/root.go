package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "nearstation",
		"description": "Nearest transit station lookup with walking directions",
		"version":     version,
		"endpoints": map[string]string{
			"GET /":                 "API information",
			"GET /health":           "Health check",
			"GET /metrics":          "Request and cache counters",
			"POST /nearest_station": "Nearest station to a coordinate (X-API-KEY required when keys are configured)",
		},
	})
}
