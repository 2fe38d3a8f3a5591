// Package httptransport assembles the HTTP surface: custody endpoints, the
// admin surface behind owner auth, and the operational endpoints.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "vaultgate/internal/admin/handler"
	custodyhandler "vaultgate/internal/custody/handler"
	"vaultgate/pkg/platform/middleware/requestid"
	"vaultgate/pkg/platform/middleware/requesttime"
)

// RouterDeps carries the wired handlers and the admin auth middleware.
type RouterDeps struct {
	Custody   *custodyhandler.Handler
	Admin     *adminhandler.Handler
	AdminAuth func(http.Handler) http.Handler
}

// NewRouter mounts all endpoints. Custody routes are open; the admin surface
// sits behind the owner token check.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		deps.Custody.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(deps.AdminAuth)
			deps.Admin.Register(r)
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
