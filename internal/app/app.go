package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/sportsmeet/internal/auth"
	"github.com/abrezinsky/sportsmeet/internal/config"
	"github.com/abrezinsky/sportsmeet/internal/handlers"
	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/metrics"
	"github.com/abrezinsky/sportsmeet/internal/repository"
	"github.com/abrezinsky/sportsmeet/internal/scheduler"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/voterkey"
	"github.com/abrezinsky/sportsmeet/internal/websocket"
)

const (
	shutdownTimeout      = 10 * time.Second
	sessionPruneInterval = 15 * time.Minute
)

// App holds all application dependencies
type App struct {
	cfg       *config.Config
	log       logger.Logger
	repo      *repository.Repository
	auth      *auth.Auth
	hub       *websocket.Hub
	handlers  *handlers.Handlers
	scheduler *scheduler.Scheduler
	reconcile *services.ReconcileService
	seed      *services.SeedService
	metrics   *metrics.Metrics

	cancelBackground context.CancelFunc
}

// New opens the store, wires every service and starts the live hub
func New(cfg *config.Config, log logger.Logger, adminAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(cfg.Server.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize services
	scoringService := services.NewScoringService(log, repo)
	settingsService := services.NewSettingsService(log, repo)
	votingService := services.NewVotingService(log, repo, settingsService)
	standingsService := services.NewStandingsService(log, repo)
	matchService := services.NewMatchService(log, repo, scoringService)
	reconcileService := services.NewReconcileService(log, votingService, scoringService)

	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		m = metrics.New()
		scoringService.SetMetrics(m)
		votingService.SetMetrics(m)
		standingsService.SetMetrics(m)
		metricsHandler = m.Handler()
	}

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, settingsService)
	hub.Start()
	settingsService.SetBroadcaster(hub)
	scoringService.SetBroadcaster(hub)
	votingService.SetBroadcaster(hub)

	sched, err := scheduler.New(scheduler.Config{
		Enabled:  cfg.Reconcile.Enabled,
		Schedule: cfg.Reconcile.Schedule,
	}, log, reconcileService)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", cfg.Reconcile.Schedule, err)
	}

	if cfg.Voting.VoterTokenSecret == "" {
		log.Warn("No voter token secret configured, bearer voter tokens are disabled")
	}

	keys := voterkey.New(cfg.Voting.VoterTokenSecret, cfg.Voting.DeviceSalt)
	keys.SetTrustProxy(cfg.Voting.TrustProxy)

	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(realNetworkProvider{}, cfg.Addr())
	}

	h := handlers.New(handlers.Services{
		Scoring:    scoringService,
		Voting:     votingService,
		Settings:   settingsService,
		Standings:  standingsService,
		Matches:    matchService,
		Reconciler: reconcileService,
	}, handlers.Options{
		Auth:    adminAuth,
		Hub:     hub,
		Keys:    keys,
		Limiter: handlers.NewClientRateLimiter(cfg.Voting.RatePerSecond, cfg.Voting.Burst),
		Metrics: metricsHandler,
		BaseURL: baseURL,
		Log:     log,
	})

	// Start background loops with context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go hub.StartVotingCountdown(ctx)
	go pruneSessions(ctx, adminAuth, log, sessionPruneInterval)

	return &App{
		cfg:              cfg,
		log:              log,
		repo:             repo,
		auth:             adminAuth,
		hub:              hub,
		handlers:         h,
		scheduler:        sched,
		reconcile:        reconcileService,
		seed:             services.NewSeedService(log, repo),
		metrics:          m,
		cancelBackground: cancel,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// BaseURL is the address voting QR codes point at
func (a *App) BaseURL() string {
	return a.handlers.BaseURL
}

// Reconcile runs one reconciliation pass immediately
func (a *App) Reconcile(ctx context.Context) (*services.ReconcileReport, error) {
	return a.reconcile.Run(ctx)
}

// Seed loads a meet file into the store
func (a *App) Seed(ctx context.Context, meet *services.MeetFile) (*services.SeedReport, error) {
	return a.seed.Seed(ctx, meet)
}

// Close stops background work and closes the store
func (a *App) Close() error {
	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	return a.repo.Close()
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.scheduler.Start()
	defer a.scheduler.Stop()

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "addr", srv.Addr, "url", a.BaseURL())
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// pruneSessions drops expired organizer sessions until ctx is cancelled
func pruneSessions(ctx context.Context, a *auth.Auth, log logger.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.PruneExpired(); n > 0 {
				log.Debug("Pruned expired sessions", "count", n)
			}
		}
	}
}

// defaultBaseURL builds the LAN URL phones should use to reach the server
func defaultBaseURL(provider networkProvider, addr string) string {
	return fmt.Sprintf("http://%s%s", getPreferredIP(provider), addr)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN access, preferring private
// ranges. Falls back to localhost if no suitable address is found.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		ipStr := ip.String()
		if strings.HasPrefix(ipStr, "192.168.") || strings.HasPrefix(ipStr, "10.") || isPrivate172(ip) {
			return ipStr
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

// isPrivate172 checks if IP is in 172.16.0.0/12 range
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
