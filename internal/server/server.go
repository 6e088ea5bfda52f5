// Package server is the composition root: it builds services and handlers
// from an open store and an AI provider, mounts them on a chi router and
// runs the HTTP server until a shutdown signal.
//
// DEPENDENCY FLOW:
//
//	main: config.Load → sqlite.Open / postgres.Open → pick ai.Provider
//	server.New: store → services → handlers → routes
//
// Nothing below this package knows which backend or provider is in use.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/omi/internal/ai"
	"github.com/sakif/omi/internal/auth"
	"github.com/sakif/omi/internal/config"
	"github.com/sakif/omi/internal/handler"
	"github.com/sakif/omi/internal/middleware"
	"github.com/sakif/omi/internal/repository/sqlstore"
	"github.com/sakif/omi/internal/service"
)

// Server owns the router, the store and the rate limiter. Both are released
// by Close, which Start calls on its way out.
type Server struct {
	router    *chi.Mux
	cfg       *config.Config
	store     *sqlstore.Store
	limiter   *middleware.RateLimiter
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// New wires every layer. Once it succeeds the server owns store; callers
// that never run Start must call Close.
func New(cfg *config.Config, store *sqlstore.Store, provider ai.Provider, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiry)
	if err != nil {
		return nil, fmt.Errorf("server: token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		store:  store,
		limiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			PerMinute: cfg.AI.RateLimit.PerMinute,
			Burst:     cfg.AI.RateLimit.Burst,
		}),
		logger: logger,
	}
	s.setupRoutes(tokens, provider)
	return s, nil
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts the API.
//
// ROUTE STRUCTURE:
//
//	GET  /                          banner
//	GET  /health, /api/health       liveness + database ping
//	POST /api/auth/register|login   public
//	GET|PUT /api/auth/me            bearer
//	/api/thoughts, /api/goals       bearer, CRUD
//	POST /api/ai/*                  bearer + per-user rate limit
//
// MIDDLEWARE ORDER:
// RequestID and RealIP first so the logger sees both; Logger wraps Recoverer
// so a recovered panic is still logged with its 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, provider ai.Provider) {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowCredentials: s.cfg.CORS.AllowCredentials,
		MaxAge:           s.cfg.CORS.MaxAge,
	}))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	users := s.store.Users()
	thoughts := s.store.Thoughts()
	goals := s.store.Goals()

	authSvc := service.NewAuthService(users, tokens, auth.NewPasswordService(), s.logger)
	thoughtSvc := service.NewThoughtService(thoughts, s.logger)
	goalSvc := service.NewGoalService(goals, s.logger)
	aiSvc := service.NewAIService(provider, thoughts, goalSvc, s.logger)

	healthH := handler.NewHealthHandler(s.store, s.cfg.App.Environment, s.cfg.App.Version, s.logger)
	authH := handler.NewAuthHandler(authSvc, s.logger)
	thoughtH := handler.NewThoughtHandler(thoughtSvc, s.logger)
	goalH := handler.NewGoalHandler(goalSvc, s.logger)
	aiH := handler.NewAIHandler(aiSvc, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	limitBody := chimiddleware.RequestSize(s.cfg.Server.MaxBodyBytes)

	r.Get("/", healthH.HandleRoot)
	r.Get("/health", healthH.HandleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthH.HandleHealth)

		r.Route("/auth", func(r chi.Router) {
			r.Use(limitBody)
			r.Post("/register", authH.HandleRegister)
			r.Post("/login", authH.HandleLogin)
			r.With(requireAuth).Get("/me", authH.HandleMe)
			r.With(requireAuth).Put("/me", authH.HandleUpdateMe)
		})

		r.Route("/thoughts", func(r chi.Router) {
			r.Use(requireAuth, limitBody)
			r.Get("/", thoughtH.HandleList)
			r.Post("/", thoughtH.HandleCreate)
			r.Get("/{id}", thoughtH.HandleGet)
			r.Put("/{id}", thoughtH.HandleUpdate)
			r.Delete("/{id}", thoughtH.HandleDelete)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Use(requireAuth, limitBody)
			r.Get("/", goalH.HandleList)
			r.Post("/", goalH.HandleCreate)
			r.Get("/{id}", goalH.HandleGet)
			r.Put("/{id}", goalH.HandleUpdate)
			r.Delete("/{id}", goalH.HandleDelete)
		})

		// Transcription uploads have their own, larger cap, so the JSON
		// body limit is applied per route here.
		r.Route("/ai", func(r chi.Router) {
			r.Use(requireAuth, s.limiter.Handler)
			r.With(limitBody).Post("/invoke-llm", aiH.HandleInvokeLLM)
			r.Post("/transcribe", aiH.HandleTranscribe)
			r.With(limitBody).Post("/generate-image", aiH.HandleGenerateImage)
			r.With(limitBody).Post("/process", aiH.HandleProcess)
			r.With(limitBody).Post("/capture", aiH.HandleCapture)
		})
	})
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to the configured shutdown timeout. The store and the rate limiter are
// released after the HTTP server has stopped.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("env", s.cfg.App.Environment),
			slog.String("database", s.store.Backend()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close stops the rate limiter's sweep goroutine and closes the store.
// Calling it more than once is safe.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.limiter.Stop()
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
			s.closeErr = fmt.Errorf("server: close store: %w", err)
		}
	})
	return s.closeErr
}
