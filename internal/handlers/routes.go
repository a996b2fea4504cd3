package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if h.Keys != nil && h.Keys.TrustsProxy() {
		r.Use(middleware.RealIP)
	}
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Public read API
		r.Get("/api/standings", h.handleGetStandings)
		r.Get("/api/standings/{colorID}/breakdown", h.handleGetColorBreakdown)
		r.Get("/api/events/{eventID}/votes", h.handleGetPublicVotes)
		r.Get("/api/events/{eventID}/vote-settings", h.handleGetEffectiveVoteSettings)
		r.Get("/api/events/{eventID}/eligibility", h.handleGetEligibility)
		r.Get("/api/events/{eventID}/vote-qr", h.handleGetVoteQR)
		r.Get("/api/popularity", h.handleGetPopularity)
		r.Get("/api/matches", h.handleListMatches)

		// Ballot submission, rate limited per client address
		r.Group(func(r chi.Router) {
			if h.Limiter != nil && h.Keys != nil {
				r.Use(h.Limiter.Middleware(h.Keys.ClientIP))
			}
			r.Post("/api/votes", h.handleCastVote)
		})

		// Auth routes (public)
		r.Post("/api/admin/login", h.handleLogin)
		r.Post("/api/admin/logout", h.handleLogout)

		// Organizer API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuthAPI)

			// Result ledger
			r.Post("/api/admin/results", h.handleRecordResult)
			r.Get("/api/admin/events/{eventID}/results", h.handleListEventResults)
			r.Delete("/api/admin/results/{eventID}/{colorID}", h.handleRemoveResult)
			r.Post("/api/admin/events/{eventID}/rescore", h.handleRescoreEvent)

			// Scoring rules
			r.Get("/api/admin/scoring-rules", h.handleGetScoringRules)
			r.Put("/api/admin/scoring-rules", h.handlePutScoringRules)
			r.Get("/api/admin/events/{eventID}/scoring-rules", h.handleGetScoringRules)
			r.Put("/api/admin/events/{eventID}/scoring-rules", h.handlePutScoringRules)

			// Vote settings and control
			r.Get("/api/admin/vote-settings", h.handleGetVoteSettings)
			r.Put("/api/admin/vote-settings", h.handlePutVoteSettings)
			r.Get("/api/admin/events/{eventID}/vote-settings", h.handleGetVoteSettings)
			r.Put("/api/admin/events/{eventID}/vote-settings", h.handlePutVoteSettings)
			r.Post("/api/admin/voting-timer", h.handleSetVotingTimer)
			r.Post("/api/admin/voting-control", h.handleSetVotingStatus)

			// Vote results
			r.Get("/api/admin/events/{eventID}/votes", h.handleGetVotes)
			r.Get("/api/admin/events/{eventID}/award-winner", h.handleGetAwardWinner)

			// Integrity
			r.Post("/api/admin/reconcile", h.handleReconcile)

			// Matches
			r.Post("/api/admin/matches", h.handleCreateMatch)
			r.Put("/api/admin/matches/{id}/status", h.handleTransitionMatch)
			r.Put("/api/admin/matches/{id}/score", h.handleUpdateMatchScore)

			// Export
			r.Get("/api/admin/standings/export.xlsx", h.handleExportStandings)
		})
	})

	return r
}
