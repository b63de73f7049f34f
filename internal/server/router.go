package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the save-hook API. reg receives the HTTP collectors and
// gather serves /metrics; both are usually the same *prometheus.Registry.
func NewRouter(h *Handler, reg prometheus.Registerer, gather prometheus.Gatherer, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/transform", h.HandleTransform)
	mux.HandleFunc("POST /api/filter-post", h.HandleFilterPost)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gather, promhttp.HandlerOpts{}))

	var chained http.Handler = mux
	chained = NewHTTPMetrics(reg).Metrics(chained)
	chained = Logging(log, chained)
	return chained
}
