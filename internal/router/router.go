package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"UsersAPI/internal/auth"
	"UsersAPI/internal/config"
	"UsersAPI/internal/handler"
	"UsersAPI/internal/logger"
	"UsersAPI/internal/metrics"

	"github.com/google/uuid"
)

// Deps are the collaborators the router wires into routes.
type Deps struct {
	Users *handler.Users
	// Auth guards /api routes; nil disables authentication.
	Auth *auth.JWTValidator
	// Health reports backend readiness for /healthz; nil means always ready.
	Health func(ctx context.Context) error
}

// NewRouter builds the HTTP handler of the service.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	mux := http.NewServeMux()

	api := func(pattern string, h http.HandlerFunc) {
		var next http.Handler = h
		if deps.Auth != nil {
			next = deps.Auth.Middleware(next)
		}
		mux.Handle(pattern, withMetrics(pattern, next))
	}
	api("GET /api/users", deps.Users.List)
	api("GET /api/users/count", deps.Users.Count)
	api("GET /api/users/{id}", deps.Users.Get)
	api("PATCH /api/users/{id}", deps.Users.Patch)
	api("DELETE /api/users/{id}", deps.Users.Delete)

	mux.Handle("GET /healthz", withMetrics("GET /healthz", healthHandler(deps.Health)))
	mux.Handle("GET /metrics", metrics.Handler())

	return withCORS(cfg.CORS, withRequestID(withLogging(mux)))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

const requestIDHeader = "X-Request-ID"

// withRequestID keeps a client supplied request id or generates one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		fields := map[string]any{
			"request_id":  logger.RequestID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}

// withMetrics records count and latency under the route pattern so path
// parameters do not explode label cardinality.
func withMetrics(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		metrics.RequestsTotal.WithLabelValues(pattern, strconv.Itoa(sw.status)).Inc()
		metrics.RequestDuration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())
	})
}

func healthHandler(check func(ctx context.Context) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Error("health_check_failed", map[string]any{"error": err.Error()})
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
