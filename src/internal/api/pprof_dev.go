//go:build dev

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// registerPprof mounts the profiler for private callers in dev builds.
func registerPprof(r chi.Router) {
	r.With(PrivateSubnetOnly).Mount("/debug", middleware.Profiler())
}
