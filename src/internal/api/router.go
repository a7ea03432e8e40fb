package api

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// TrustedProxies may set the caller address through X-Forwarded-For.
	TrustedProxies []*net.IPNet
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

// NewRouter creates a new HTTP router with all API endpoints.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(CallerIP(opts.TrustedProxies))
	r.Use(Recovery)
	r.Use(Logger)
	r.Use(JSONContentType)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "route")
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Allowlists are enforced per API by the gateway.
		r.Get("/invoke/{code}", h.Invoke)
		r.Post("/invoke/{code}", h.Invoke)

		r.Get("/health", h.CheckHealth)

		// Definitions reveal statements and topology.
		r.Group(func(r chi.Router) {
			r.Use(PrivateSubnetOnly)
			r.Get("/apis", h.ListAPIs)
			r.Get("/apis/{code}", h.DescribeAPI)
			r.Get("/status", h.GetStatus)
		})
	})

	if opts.Metrics != nil {
		r.With(PrivateSubnetOnly).Handle("/metrics", opts.Metrics)
	}

	registerPprof(r)
	return r
}
