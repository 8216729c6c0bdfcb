// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the bowling backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, panic recovery, timeouts,
//     JSON, CORS, trailing-slash tolerance).
//   - Public endpoints: "/", "/health".
//   - Game endpoints: mounted under /games (routes_games.go).
//
// Notes:
//   - Regular routes are bounded by RequestTimeout. The summary route gets its
//     own, longer bound since it waits on the language model.
//   - Errors are written as {"error": "..."} with the status from apperr.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bowling/apps/go-server/internal/apperr"
	"github.com/robalobadob/bowling/apps/go-server/internal/lifecycle"
)

// Options tunes the HTTP layer.
type Options struct {
	ClientOrigin   string        // CORS origin; defaults to http://localhost:5173
	RequestTimeout time.Duration // per-request bound for regular routes
	SummaryTimeout time.Duration // bound for the summary collaborator call
}

// Server bundles router, lifecycle and the underlying http.Server.
type Server struct {
	r     *chi.Mux
	games *lifecycle.Lifecycle
	opts  Options
	http  *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(games *lifecycle.Lifecycle, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.SummaryTimeout <= 0 {
		opts.SummaryTimeout = 30 * time.Second
	}
	s := &Server{r: chi.NewRouter(), games: games, opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)             // add X-Request-ID
	s.r.Use(chimw.RealIP)                // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(hlog.NewHandler(log.Logger)) // request-scoped logger
	s.r.Use(accessLog)                   // one structured line per request
	s.r.Use(chimw.Recoverer)             // recover from panics
	s.r.Use(chimw.StripSlashes)          // "/games/" and "/games" are the same route
	s.r.Use(jsonContentType)             // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"bowling-go","endpoints":["/health","/games","POST /games/{id}/rolls","/games/{id}/score","/games/{id}/frames","/games/{id}/summary"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountGames()

	// JSON 404/405 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops a server started with Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// accessLog writes one log line per request through the request-scoped logger.
func accessLog(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		ev := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			ev = hlog.FromRequest(r).Error()
		}
		ev.Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})(next)
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- responses ---------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through apperr and writes {"error": message}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	// Timed-out requests are answered with 504 by chimw.Timeout.
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		hlog.FromRequest(r).Warn().Err(err).Msg("request timed out")
		return
	}
	status, msg := apperr.HTTPStatus(err), apperr.MessageOf(err)
	if status >= http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
