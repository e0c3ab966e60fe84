package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mahmoudomarus/krib-server/internal/http/booking"
	"github.com/mahmoudomarus/krib-server/internal/http/ledger"
	"github.com/mahmoudomarus/krib-server/internal/http/payout"
	"github.com/mahmoudomarus/krib-server/internal/http/property"
	"github.com/mahmoudomarus/krib-server/internal/http/webhook"
)

type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

func New(
	opts Options,
	propertiesV1 *property.Handler,
	bookingsV1 *booking.Handler,
	transactionsV1 *ledger.Handler,
	payoutsV1 *payout.Handler,
	webhooksV1 *webhook.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	router.Use(Authenticate(opts.JWTSecret))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			propertiesV1.Routes(r)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			bookingsV1.Routes(r)
		})

		r.Route("/transactions", transactionsV1.Routes)

		r.Route("/payouts", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			payoutsV1.Routes(r)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			webhooksV1.Routes(r)
		})

		r.Route("/events", webhooksV1.EventRoutes)
	})

	return router
}
