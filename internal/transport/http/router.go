package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/bed-alerts/internal/config"
	"github.com/bed-alerts/internal/transport/http/handler"
	appmiddleware "github.com/bed-alerts/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work owned by middleware.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(appmiddleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	confirmRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.ConfirmRateLimit), cfg.ConfirmRateBurst)

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(deps.Notifications)

	r.Get("/health-check/{action}", healthH.Ping)

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", notifH.List)
		r.Post("/", notifH.Raise)
		r.Get("/{id}", notifH.Get)

		r.Group(func(r chi.Router) {
			r.Use(confirmRL.Limit)
			r.Post("/{id}/confirm-for-user", notifH.ConfirmForUser)
			r.Post("/{id}/confirm-for-event", notifH.ConfirmForEvent)
		})
	})

	return r
}
