package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"github.com/michaelbrown/runpad/internal/lang"
	"github.com/michaelbrown/runpad/internal/relay"
)

// Runner executes one run request. *relay.Service implements it.
type Runner interface {
	Run(ctx context.Context, req relay.RunRequest) (relay.RunResponse, error)
}

// Server is the HTTP front of the relay.
type Server struct {
	runner  Runner
	catalog lang.Catalog
	log     *slog.Logger
	conns   *ConnManager
	router  chi.Router
	http    *http.Server
}

// New creates a new Server.
func New(runner Runner, catalog lang.Catalog, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		runner:  runner,
		catalog: catalog,
		log:     log,
		conns:   NewConnManager(),
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	s.http = &http.Server{Handler: s.router}
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	// WebSocket needs the raw connection, so it stays outside compression.
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(compress)

		r.Group(func(r chi.Router) {
			r.Use(jsonContentType)

			r.Post("/run", s.handleRun)
			r.Get("/languages", s.handleLanguages)
			r.Get("/healthz", s.handleHealth)
		})

		// SPA fallback
		r.Handle("/*", spaHandler())
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http.Addr = addr

	s.log.Info("relay listening", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server", "connections", s.conns.Len())
	s.conns.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
