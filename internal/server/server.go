package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/storyloom/storyloom/internal/api"
	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/entitlement"
	"github.com/storyloom/storyloom/internal/home"
	"github.com/storyloom/storyloom/internal/llmcall"
	"github.com/storyloom/storyloom/internal/providers"
	"github.com/storyloom/storyloom/internal/server/endpoints"
	"github.com/storyloom/storyloom/internal/store"
	"github.com/storyloom/storyloom/internal/story"
	"github.com/storyloom/storyloom/internal/svcctx"
)

// Server is the main Storyloom HTTP server.
// It owns the SQLite store lifecycle - opening and seeding it on start and
// closing it on shutdown.
type Server struct {
	httpServer *http.Server
	store      *store.SQLiteStore
	registry   *providers.Registry
	storySvc   *story.Service
	configMgr  *config.Manager
	homeDir    *home.Dir
	dbPath     string
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8399)
	Port int
	// DBPath overrides the SQLite database location
	DBPath string
	// Home is the storyloom home directory
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8399
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// Create provider registry
	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	// If config manager provided, set up providers and hot reload
	if cfg.ConfigManager != nil {
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		registry:  registry,
		configMgr: cfg.ConfigManager,
		homeDir:   cfg.Home,
		logger:    cfg.Logger,
	}
	s.dbPath = resolveDBPath(cfg)

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler: s.withServices(mux),
		// No WriteTimeout: synthesis and compile requests hold the
		// connection for the duration of the model calls.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	return s, nil
}

// resolveDBPath picks the database location: explicit override, then config,
// then the home directory, then in-memory.
func resolveDBPath(cfg Config) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	if cfg.ConfigManager != nil {
		if p := cfg.ConfigManager.Get().Storage.DBPath; p != "" {
			return p
		}
	}
	if cfg.Home != nil {
		return cfg.Home.DBPath()
	}
	return ":memory:"
}

// Start starts the server and opens the store.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.initServices(ctx); err != nil {
		if s.store != nil {
			_ = s.shutdown()
		} else {
			s.setNotRunning()
		}
		return err
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// initServices opens and seeds the store and builds the synthesis pipeline.
func (s *Server) initServices(ctx context.Context) error {
	s.logger.Info("opening store", "path", s.dbPath)
	st, err := store.NewSQLiteStore(s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	s.store = st

	if err := st.SeedChapters(ctx, store.DefaultChapters(), store.DefaultQuestions()); err != nil {
		return fmt.Errorf("failed to seed chapters: %w", err)
	}

	s.storySvc = s.buildStoryService(st)

	s.services = &svcctx.Services{
		Store:         s.store,
		Registry:      s.registry,
		Story:         s.storySvc,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
		Home:          s.homeDir,
	}
	return nil
}

// buildStoryService wires the synthesizer, compiler, and permission gate from
// current configuration.
func (s *Server) buildStoryService(st *store.SQLiteStore) *story.Service {
	var (
		provider string
		model    string
		temp     float64
		maxTok   int
		timeout  time.Duration
		limiter  *providers.RateLimiter
	)
	if s.configMgr != nil {
		cfg := s.configMgr.Get()
		provider = cfg.Defaults.LLMProvider
		temp = cfg.Defaults.Temperature
		maxTok = cfg.Defaults.MaxTokens
		timeout = cfg.SynthesisTimeout()
		if pc, ok := cfg.GetLLMProvider(provider); ok {
			model = pc.Model
			if pc.RateLimit > 0 {
				limiter = providers.NewRateLimiter(int(pc.RateLimit))
			}
		}
	}

	synth := story.NewSynthesizer(story.SynthesizerConfig{
		Store:       st,
		Registry:    s.registry,
		Provider:    provider,
		Model:       model,
		Temperature: temp,
		MaxTokens:   maxTok,
		Timeout:     timeout,
		Limiter:     limiter,
		Calls:       llmcall.NewRecorder(st, s.logger),
		Logger:      s.logger,
	})
	compiler := story.NewCompiler(st, synth, s.logger)
	return story.NewService(st, synth, compiler, entitlement.NewStoreProvider(st))
}

// shutdown performs graceful shutdown of the HTTP server and the store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Close the store
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("store close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the SQLite store.
// Returns nil if the server hasn't started yet.
func (s *Server) Store() *store.SQLiteStore {
	return s.store
}

// StoryService returns the story service.
// Returns nil if the server hasn't started yet.
func (s *Server) StoryService() *story.Service {
	return s.storySvc
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store isn't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.storySvc == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
