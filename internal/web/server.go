// Package web provides the HTTP server hosting upload widget sessions.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
	mw "github.com/JonMunkholm/uploader/internal/web/middleware"
)

// Server is the HTTP server for upload widget sessions.
type Server struct {
	cfg      *config.Config
	backend  storage.Backend
	sessions *sessionStore
	router   *chi.Mux
	server   *http.Server

	// heartbeat is the SSE keep-alive interval.
	heartbeat time.Duration
}

// NewServer creates a Server whose sessions upload to backend.
func NewServer(cfg *config.Config, backend storage.Backend) *Server {
	s := &Server{
		cfg:       cfg,
		backend:   backend,
		router:    chi.NewRouter(),
		heartbeat: 15 * time.Second,
	}
	s.sessions = newSessionStore(cfg.Session.TTL, cfg.Session.MaxSessions, s.newCoordinator)
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) newCoordinator(id string) *uploader.Coordinator {
	return uploader.New(s.cfg.Widget.Options(), s.backend, s.backend).
		WithLogger(slog.Default().With("component", "uploader", "session", id))
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	timeout := middleware.Timeout(s.cfg.Server.RequestTimeout)

	var addLimit func(http.Handler) http.Handler
	if s.cfg.Rate.Enabled {
		addLimit = newRateLimiter(s.cfg.Rate.AddLimit, time.Minute).middleware
	}

	// Pages
	s.router.With(timeout).Get("/", s.handleNewSessionPage)
	s.router.With(timeout).Get("/s/{sessionID}", s.handleSessionPage)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// SSE streams stay open; no request timeout.
		r.Get("/sessions/{sessionID}/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(timeout)

			r.Get("/files", s.handleStoredFiles)

			r.Post("/sessions", s.handleCreateSession)
			r.Get("/sessions/{sessionID}", s.handleSessionStatus)
			r.Delete("/sessions/{sessionID}", s.handleCloseSession)
			r.Get("/sessions/{sessionID}/items", s.handleListItems)
			r.Put("/sessions/{sessionID}/capacity", s.handleSetCapacity)
			r.Post("/sessions/{sessionID}/clear", s.handleClear)

			if addLimit != nil {
				r.With(addLimit).Post("/sessions/{sessionID}/files", s.handleAddFiles)
			} else {
				r.Post("/sessions/{sessionID}/files", s.handleAddFiles)
			}

			r.Delete("/sessions/{sessionID}/files/{name}", s.handleDeleteFile)
			r.Post("/sessions/{sessionID}/files/{name}/retry", s.handleRetryFile)
		})
	})
}

// Run serves on the configured address and runs the session janitor until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.sessions.runJanitor(gctx, s.cfg.Session.JanitorInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops accepting requests and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.sessions.closeAll(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// The widget page uses one inline script and inline styles.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// allow consumes a token for ip. Stale visitors are dropped on the way so
// the map stays bounded without a background goroutine.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.visitors) > 1024 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastReset) > 2*rl.window {
				delete(rl.visitors, k)
			}
		}
	}

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			respondError(w, r, errRateLimited, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
