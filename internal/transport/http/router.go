// Package httptransport composes the module handlers into the service
// router. Transport concerns only; business logic stays in the services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalhandler "kehila/internal/approval/handler"
	areahandler "kehila/internal/area/handler"
	"kehila/internal/auth"
	"kehila/internal/platform/metrics"
	"kehila/internal/platform/middleware"
	volhandler "kehila/internal/volunteer/handler"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Validator  middleware.TokenValidator
	Auth       *auth.Handler
	Volunteers *volhandler.Handler
	Areas      *areahandler.Handler
	Approvals  *approvalhandler.Handler
	// RequestTimeout bounds every request; the approval pipeline's render
	// and upload timeouts must fit inside it.
	RequestTimeout time.Duration
}

// NewRouter wires all endpoints. Admin routes sit behind bearer auth;
// registration and the area list are public.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(middleware.LatencyMiddleware(d.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Auth.Register(r)
	d.Volunteers.RegisterPublic(r)
	d.Areas.RegisterPublic(r)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(d.Validator, d.Logger))
		d.Volunteers.RegisterAdmin(admin)
		d.Areas.RegisterAdmin(admin)
		d.Approvals.Register(admin)
	})

	return r
}
