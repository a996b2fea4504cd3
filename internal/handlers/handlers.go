package handlers

import (
	"net/http"

	"github.com/abrezinsky/sportsmeet/internal/auth"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/voterkey"
	"github.com/abrezinsky/sportsmeet/internal/websocket"
)

// Services groups the engine services the API exposes
type Services struct {
	Scoring    services.ScoringServicer
	Voting     services.VotingServicer
	Settings   services.SettingsServicer
	Standings  services.StandingsServicer
	Matches    services.MatchServicer
	Reconciler services.Reconciler
}

// Options carries the HTTP-side collaborators
type Options struct {
	Auth    *auth.Auth
	Hub     *websocket.Hub
	Keys    *voterkey.Resolver
	Limiter *ClientRateLimiter
	Metrics http.Handler
	BaseURL string
	Log     HTTPLogger
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Scoring    services.ScoringServicer
	Voting     services.VotingServicer
	Settings   services.SettingsServicer
	Standings  services.StandingsServicer
	Matches    services.MatchServicer
	Reconciler services.Reconciler
	Auth       *auth.Auth
	Hub        *websocket.Hub
	Keys       *voterkey.Resolver
	Limiter    *ClientRateLimiter
	Metrics    http.Handler
	BaseURL    string
	Log        HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(svcs Services, opts Options) *Handlers {
	return &Handlers{
		Scoring:    svcs.Scoring,
		Voting:     svcs.Voting,
		Settings:   svcs.Settings,
		Standings:  svcs.Standings,
		Matches:    svcs.Matches,
		Reconciler: svcs.Reconciler,
		Auth:       opts.Auth,
		Hub:        opts.Hub,
		Keys:       opts.Keys,
		Limiter:    opts.Limiter,
		Metrics:    opts.Metrics,
		BaseURL:    opts.BaseURL,
		Log:        opts.Log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance with a known organizer password, a
// voter key resolver with fixed secrets and no rate limiter
func NewForTesting(svcs Services) *Handlers {
	return New(svcs, Options{
		Auth:    auth.New("test-password"),
		Keys:    voterkey.New("test-secret", "test-salt"),
		BaseURL: "http://localhost:8081",
		Log:     NoopHTTPLogger{},
	})
}
