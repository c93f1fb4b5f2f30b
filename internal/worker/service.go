// Package worker provides the HTTP worker service for resonance.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/resonancehq/resonance/internal/config"
	"github.com/resonancehq/resonance/internal/db/gorm"
	"github.com/resonancehq/resonance/internal/orchestrator"
	"github.com/resonancehq/resonance/internal/planner"
	"github.com/resonancehq/resonance/internal/scoring"
	"github.com/resonancehq/resonance/internal/watcher"
	"github.com/rs/zerolog/log"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBody caps incoming request bodies.
	MaxRequestBody = 1 << 20 // 1 MB
)

// Service is the main worker service orchestrator.
type Service struct {
	// Version of the worker binary
	version string

	// Configuration
	config *config.Config

	// Database
	store       *gorm.Store
	taskStore   *gorm.TaskStore
	weightStore *gorm.WeightStore
	planStore   *gorm.PlanStore

	// Domain services
	calculator   *scoring.Calculator
	recalculator *scoring.Recalculator
	selector     *planner.Selector
	runner       *orchestrator.Runner

	// HTTP server
	router    *chi.Mux
	server    *http.Server
	startTime time.Time

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Initialization state (for deferred init)
	ready     atomic.Bool
	initError error
	initMu    sync.RWMutex

	// Settings file watcher
	settingsWatcher *watcher.Watcher
}

// NewService creates a new worker service with deferred initialization.
// The service starts immediately with the health endpoint available,
// while database initialization happens in the background.
func NewService(version string) (*Service, error) {
	cfg := config.Get()

	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:   version,
		config:    cfg,
		router:    chi.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	// Setup middleware and routes (health endpoint works immediately)
	svc.setupMiddleware()
	svc.setupRoutes()

	if cfg.SchedulerSecret == "" {
		log.Warn().Msg("No scheduler secret configured, plan-run endpoint is open")
	}

	// Start async initialization
	go svc.initializeAsync()

	return svc, nil
}

// initializeAsync performs heavy initialization in the background.
func (s *Service) initializeAsync() {
	log.Info().Msg("Starting async initialization...")

	if err := config.EnsureAll(); err != nil {
		s.setInitError(fmt.Errorf("ensure data dir: %w", err))
		return
	}

	// Initialize database (includes migrations, can be slow)
	store, err := gorm.NewStore(gorm.Config{
		DSN:      s.config.DatabaseDSN,
		MaxConns: s.config.MaxConns,
	})
	if err != nil {
		s.setInitError(fmt.Errorf("init database: %w", err))
		return
	}

	taskStore := gorm.NewTaskStore(store)
	weightStore := gorm.NewWeightStore(store)
	planStore := gorm.NewPlanStore(store)

	calculator := scoring.NewCalculator(scoring.DefaultConfig())
	recalculator := scoring.NewRecalculator(taskStore, weightStore, calculator, log.Logger)
	selector := planner.NewSelector(taskStore, planStore, recalculator, log.Logger)
	selector.SetSizes(s.config.PlanTargetSize, s.config.PlanPoolSize)
	runner := orchestrator.NewRunner(selector, weightStore, log.Logger)

	s.initMu.Lock()
	s.store = store
	s.taskStore = taskStore
	s.weightStore = weightStore
	s.planStore = planStore
	s.calculator = calculator
	s.recalculator = recalculator
	s.selector = selector
	s.runner = runner
	s.initMu.Unlock()

	s.ready.Store(true)
	log.Info().Msg("Async initialization complete - service ready")

	s.startWatchers()
}

// startWatchers starts the settings file watcher for live config reload.
func (s *Service) startWatchers() {
	settingsPath := config.SettingsPath()
	settingsWatcher, err := watcher.New(settingsPath, func() {
		cfg, err := config.Reload()
		if err != nil {
			log.Warn().Err(err).Msg("Settings reload failed, keeping previous config")
			return
		}
		s.initMu.Lock()
		s.config = cfg
		s.initMu.Unlock()
		log.Info().Msg("Settings reloaded")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
		return
	}

	s.settingsWatcher = settingsWatcher
	if err := settingsWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
	} else {
		log.Info().Str("path", settingsPath).Msg("Settings file watcher started")
	}
}

// setInitError records an initialization error.
func (s *Service) setInitError(err error) {
	s.initMu.Lock()
	s.initError = err
	s.initMu.Unlock()
	log.Error().Err(err).Msg("Async initialization failed")
}

// GetInitError returns any initialization error.
func (s *Service) GetInitError() error {
	s.initMu.RLock()
	defer s.initMu.RUnlock()
	return s.initError
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(middleware.RealIP)
	s.router.Use(SecurityHeaders)
	s.router.Use(RequestID)
	s.router.Use(MaxBodySize(MaxRequestBody))
	s.router.Use(RequireJSONContentType)
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	// Health check returns 200 immediately so process supervisors can
	// connect during init. Use /api/ready for full readiness.
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/health", s.handleHealth)

	s.router.Get("/api/version", s.handleVersion)
	s.router.Get("/api/ready", s.handleReady)

	// Routes that require the database to be ready
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireReady)

		// Scoring routes
		r.Get("/api/owners/{owner}/tasks/top", s.handleTopTasks)
		r.Get("/api/tasks/{id}/score", s.handleExplainScore)
		r.Post("/api/scoring/recalculate", s.handleTriggerRecalculation)

		// Affinity weight routes
		r.Get("/api/owners/{owner}/weights", s.handleGetWeights)
		r.Put("/api/owners/{owner}/weights", s.handleUpdateWeights)

		// Planning routes
		r.Get("/api/owners/{owner}/plans", s.handleGetPlans)
		r.With(s.requireSchedulerSecret).Post("/api/plans/run", s.handleRunPlans)
	})
}

// Start starts the worker service.
// The HTTP server starts immediately; database initialization is async.
func (s *Service) Start() error {
	port := s.config.HTTPPort

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	log.Info().
		Int("port", port).
		Str("version", s.version).
		Msg("Worker HTTP server started (initialization in progress)")

	return nil
}

// Shutdown gracefully shuts down the service.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()

	if s.settingsWatcher != nil {
		_ = s.settingsWatcher.Stop()
	}

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}

	s.initMu.RLock()
	store := s.store
	s.initMu.RUnlock()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Database close error")
		}
	}

	s.wg.Wait()

	log.Info().Msg("Worker service shutdown complete")
	return nil
}
