/**
 * @description
 * This file sets up the HTTP router for the funds-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies
 * middleware for logging, panic recovery, CORS and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for chi.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and returns the router for the funds service.
func NewRouter(h *Handlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/users/register", h.RegisterUserHandler)
		r.Post("/users/login", h.LoginHandler)
		r.Get("/funds", h.ListFundsHandler)
		r.Get("/funds/{fundID}", h.GetFundHandler)

		// Group routes that require authentication.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtSecret))

			r.Get("/users/profile", h.ProfileHandler)
			r.Get("/users/me/balance", h.BalanceHandler)
			r.Get("/users/me/history", h.HistoryHandler)

			r.Post("/funds", h.CreateFundHandler)
			r.Put("/funds/{fundID}/status", h.SetFundStatusHandler)

			r.Post("/funds/subscribe", h.SubscribeHandler)
			r.Post("/funds/cancel", h.CancelHandler)
		})
	})

	return r
}
