package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) corsHandler() func(http.Handler) http.Handler {
	if len(c.config.CORSOrigins) == 0 {
		return cors.AllowAll().Handler
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: c.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
}

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(c.corsHandler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", c.healthz)
		r.Get("/ws", c.serveWS)
		r.Get("/room/{code}", c.getRoom)
		r.Get("/video/{video-id}", c.getVideo)
	})

	return r
}
