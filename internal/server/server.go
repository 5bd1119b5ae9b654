// Package server exposes recorded games over HTTP and can start new games
// whose events are streamed live to subscribers.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/starfleet/internal/game"
	"github.com/leapstack-labs/starfleet/internal/scenario"
	"github.com/leapstack-labs/starfleet/internal/state"
	"golang.org/x/sync/errgroup"
)

// Defaults for Config.
const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 5 * time.Second
)

// Config holds configuration for the server.
type Config struct {
	Store        state.Store
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// ScenariosDir is searched for scenario files by bare name
	ScenariosDir string
	Logger       *slog.Logger
}

// Server serves the game API.
type Server struct {
	store        state.Store
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	scenariosDir string
	logger       *slog.Logger
	notifier     *Notifier
	runner       *scenario.Runner

	// games started through the API run under ctx until Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	notifier := NewNotifier()
	recorder := state.NewRecorder(cfg.Store, logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		store:        cfg.Store,
		addr:         cfg.Addr,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		scenariosDir: cfg.ScenariosDir,
		logger:       logger,
		notifier:     notifier,
		runner: &scenario.Runner{
			Logger:    logger,
			Observers: []game.Observer{recorder, notifier},
			Hooks:     recorder.Hooks(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Notifier returns the server's live event notifier.
func (s *Server) Notifier() *Notifier { return s.notifier }

// Handler builds the HTTP router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
			NoColor: true,
		}),
		middleware.Recoverer,
		middleware.Compress(5, "application/json"),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/scenarios", s.handleListScenarios)
		r.Route("/games", func(r chi.Router) {
			r.Get("/", s.handleListGames)
			r.Post("/", s.handleStartGame)
			r.Get("/{id}", s.handleGetGame)
			r.Get("/{id}/events", s.handleGameEvents)
			r.Get("/{id}/stream", s.handleStreamEvents)
		})
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully and stops games started through the API.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		// Streams are long lived; handlers bound their own writes.
		WriteTimeout: 0,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server")
		err := srv.Shutdown(shutdownCtx)
		s.Close()
		return err
	})

	return eg.Wait()
}

// Close cancels games started through the API and waits for them to be
// recorded.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}
