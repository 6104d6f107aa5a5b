package handlers

import (
	"net/http"
)

type MetricsHandler struct {
	source MetricsSource
}

func NewMetricsHandler(source MetricsSource) *MetricsHandler {
	return &MetricsHandler{source: source}
}

// Metrics returns the current counter values
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	counters := map[string]int64{}
	if h.source != nil {
		for name, v := range h.source.Snapshot() {
			counters[string(name)] = v
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"counters": counters,
	})
}
