package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rylie-seo/vendor-relay/internal/handlers"
	"github.com/rylie-seo/vendor-relay/internal/middleware"
)

// NewRouter constructs a ServeMux with relay routes registered.
func NewRouter(h *handlers.RelayHandler) http.Handler {
	mux := http.NewServeMux()

	// Liveness/identity probe
	mux.HandleFunc("GET /{$}", h.Root)

	// Internal -> vendor (tenant token)
	mux.HandleFunc("POST /vendor/seo/task", h.SubmitTask)

	// Vendor -> internal (signed envelope + IP allowlist)
	mux.HandleFunc("POST /vendor/seo/report", h.ReceiveReport)
	mux.HandleFunc("POST /vendor/seo/publish", h.ReceivePublish)
	mux.HandleFunc("POST /vendor/seo/file", h.ReceiveFile)

	// Operational endpoints
	mux.HandleFunc("GET /healthz", h.Root)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
