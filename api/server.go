/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Per-request logging
  2. Recoverer:  Turns handler panics into 500s
  3. RequestID:  Request IDs for log correlation
  4. CORS:       Lets a dashboard frontend on another port call the API

ROUTE GROUPS:
  /api/months/*     Reconciled months, envelope detail, rebalance
  /api/transfers/*  Rebalancing journal (list, append, CSV export)
  /api/history      Trend series
  /api/report       Feed exclusion audit
  /api/scenarios/*  Demo scenarios

SECURITY NOTE:
  No authentication middleware. This serves a single household's
  ledger on localhost.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Month routes
		r.Route("/months", func(r chi.Router) {
			r.Get("/", h.ListMonths)
			r.Get("/{month}", h.GetMonth)
			r.Get("/{month}/rebalance", h.GetRebalance)
			r.Post("/{month}/preview", h.PreviewMonth)
		})

		// Transfer journal routes
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", h.ListTransfers)
			r.Post("/", h.CreateTransfer)
			r.Get("/export", h.ExportTransfers)
		})

		r.Get("/history", h.GetHistory)
		r.Get("/report", h.GetReport)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Envelope Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Envelope Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/months">/api/months</a> - Reconciled months</li>
<li><a href="/api/transfers">/api/transfers</a> - Rebalancing journal</li>
<li><a href="/api/history">/api/history</a> - Trend series</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
