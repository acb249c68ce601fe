package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/staldhusene/faellesspisning/internal/auth"
	"github.com/staldhusene/faellesspisning/internal/config"
)

func RegisterRoutes(r *chi.Mux, cfg *config.Config, authHandler *auth.AuthHandler, dinnerHandler *DinnerHandler, pageHandler *PageHandler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("Fællesspisning API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"houseCookie": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, humaConfig)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	huma.Get(api, "/api/houses", dinnerHandler.HandleListHouses)
	huma.Get(api, "/api/house", authHandler.HandleMe, func(o *huma.Operation) {
		o.Security = []map[string][]string{{"houseCookie": {}}}
	})
	huma.Post(api, "/api/house", authHandler.HandleSelect)
	huma.Get(api, "/api/houses/{house}/events", dinnerHandler.HandleEvents)
	huma.Get(api, "/api/houses/{house}/events/{row}", dinnerHandler.HandleEvent)
	huma.Put(api, "/api/houses/{house}/events/{row}/participation", dinnerHandler.HandleParticipation)
	huma.Put(api, "/api/events/{row}/schedule", dinnerHandler.HandleSchedule)
	huma.Put(api, "/api/events/{row}/expense", dinnerHandler.HandleExpense)
	huma.Get(api, "/api/houses/{house}/history", dinnerHandler.HandleHistory)

	// HTML pages
	r.Group(func(r chi.Router) {
		r.Use(authHandler.HouseMiddleware)
		r.Use(CSRF(cfg.CSRFKey, cfg.SecureCookies, cfg.TrustedOrigins))
		pageHandler.Routes(r)
	})
}
