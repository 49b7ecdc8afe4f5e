// Package httpapi exposes the auth server's JSON API over chi.
//
//	POST /auth/register     -> 201 {token,user}
//	POST /auth/login        -> 200 {token,user}
//	POST /auth/logout       -> 204 (bearer)
//	GET  /auth/me           -> 200 {user} (bearer)
//	PUT  /auth/users/role   -> 200 {user} (bearer, admin)
//	GET  /health            -> 200 {status}
//	GET  /metrics           -> Prometheus exposition
//
// Errors are {"error": "..."} with a non-2xx status.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/models"
	"github.com/dmitrijs2005/shopkeeper/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries what NewRouter needs besides the handler.
type RouterConfig struct {
	AllowedOrigins []string
	Gatherer       prometheus.Gatherer
	Metrics        *metrics.Metrics
	Logger         logging.Logger
}

// NewRouter wires the middleware stack and routes.
func NewRouter(users UserService, cfg RouterConfig) *chi.Mux {
	h := NewHandler(users, cfg.Metrics, cfg.Logger)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(instrument(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", common.AuthHeaderName, "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)

			r.With(requireRole(models.RoleAdmin)).Put("/users/role", h.SetRole)
		})
	})

	return r
}
