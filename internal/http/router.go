package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	journalHandler "github.com/ontyx/ontyx/internal/http/journal"
	quoteHandler "github.com/ontyx/ontyx/internal/http/quote"
	"github.com/ontyx/ontyx/internal/http/tenant"
)

func New(
	jwtSecret []byte,
	allowedOrigins []string,
	quotesV1 *quoteHandler.Handler,
	journalV1 *journalHandler.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(tenant.Middleware(jwtSecret))

		r.Route("/quotes", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			quotesV1.Routes(r)
		})

		r.Route("/journal-entries", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			journalV1.Routes(r)
		})
	})

	return router
}
