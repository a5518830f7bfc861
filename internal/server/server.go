package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/issuedesk/apiserver/config"
	"github.com/issuedesk/apiserver/internal/auth"
	"github.com/issuedesk/apiserver/internal/db"
	"github.com/issuedesk/apiserver/internal/handlers"
	"github.com/issuedesk/apiserver/internal/mq"
	"github.com/issuedesk/apiserver/internal/services"
	"github.com/issuedesk/apiserver/internal/storage"
	"github.com/issuedesk/apiserver/internal/store"
	"github.com/issuedesk/apiserver/internal/store/memory"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the router is built from.
type Deps struct {
	Issues      services.IssueRepository
	Users       services.UserRepository
	Tokens      *auth.Tokens
	BcryptCost  int
	Archiver    services.IssueArchiver
	Events      services.EventPublisher
	CORSOrigins []string
	Logger      *zap.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	closers    []func() error
}

// New wires the configured store, archive and broker into a Server.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{logger: logger}
	deps := Deps{
		Tokens:      auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		BcryptCost:  cfg.Auth.BcryptCost,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		mem := memory.New()
		deps.Issues, deps.Users = mem.Issues(), mem.Users()
		logger.Warn("using in-memory store, data is lost on restart")
	case config.StoreBackendPostgres, "":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, conn.Close)
		deps.Issues, deps.Users = store.NewIssueRepository(conn), store.NewUserRepository(conn)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	objects, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if objects != nil {
		s.closers = append(s.closers, objects.Close)
		deps.Archiver = storage.NewIssueArchive(objects)
		logger.Info("archiving deleted issues",
			zap.String("backend", cfg.Storage.Backend),
			zap.String("bucket", objects.Bucket()),
		)
	}

	broker, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("message queue: %w", err)
	}
	if broker != nil {
		s.closers = append(s.closers, broker.Close)
		deps.Events = services.NewMQPublisher(broker, cfg.MQ.Channel, logger)
		logger.Info("publishing events",
			zap.String("backend", cfg.MQ.Backend),
			zap.String("channel", cfg.MQ.Channel),
		)
	}

	s.router = NewRouter(deps)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(logger),
	}
	return s, nil
}

// NewRouter builds the API router.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	authService := services.NewAuthService(deps.Users, deps.Tokens,
		services.WithBcryptCost(deps.BcryptCost),
		services.WithAuthEvents(deps.Events),
	)
	issueOpts := []services.IssueOption{
		services.WithIssueEvents(deps.Events),
		services.WithIssueLogger(logger),
	}
	if deps.Archiver != nil {
		issueOpts = append(issueOpts, services.WithArchiver(deps.Archiver))
	}
	issueService := services.NewIssueService(deps.Issues, issueOpts...)
	gate := handlers.RequireAuth(deps.Tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(logger),
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			handlers.AuthRouter(r, authService, gate, logger)
		})
		r.Route("/issue", func(r chi.Router) {
			handlers.IssueRouter(r, issueService, gate, logger)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run starts the server and shuts it down gracefully once ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown drains in-flight requests, then releases the store and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close resource", zap.Error(err))
		}
	}
	s.closers = nil
}
