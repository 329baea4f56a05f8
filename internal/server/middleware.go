package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/console"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
)

const sessionDisconnected = "The login session has been disconnected."

type contextKey int

const userKey contextKey = iota

// userFromContext returns the user an authenticated request belongs to
func userFromContext(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// responseCapture wraps http.ResponseWriter to capture status code
type responseCapture struct {
	http.ResponseWriter
	status int
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	return rc.ResponseWriter.Write(b)
}

// requestLogger is middleware that logs one line per request
type requestLogger struct {
	handler http.Handler
}

func newRequestLogger(handler http.Handler) *requestLogger {
	return &requestLogger{handler: handler}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rc := &responseCapture{ResponseWriter: w}
	rl.handler.ServeHTTP(rc, r)
	logger.Info("%s %s %d %s %s", r.Method, r.URL.Path, rc.status, time.Since(start).Round(time.Microsecond), clientIP(r))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// allowNetworks rejects clients outside the configured networks
func (s *Server) allowNetworks(next http.Handler) http.Handler {
	if len(s.networks) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := net.ParseIP(clientIP(r))
		for _, n := range s.networks {
			if ip != nil && n.Contains(ip) {
				next.ServeHTTP(w, r)
				return
			}
		}
		logger.Warn("rejected request from %s", clientIP(r))
		writeError(w, http.StatusForbidden, "Access from this address is not allowed.")
	})
}

// limitBody caps request bodies at MaxRequestBytes
func (s *Server) limitBody(next http.Handler) http.Handler {
	if s.config.MaxRequestBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
		next.ServeHTTP(w, r)
	})
}

// requireAuth verifies the bearer token and hands out a refreshed one
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, sessionDisconnected)
			return
		}
		claims, err := s.auth.Tokens().Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("token rejected: %v", err)
			writeError(w, http.StatusUnauthorized, sessionDisconnected)
			return
		}

		fresh, _, err := s.auth.Tokens().Issue(claims.Username())
		if err != nil {
			logger.Error("failed to refresh token: %v", err)
		} else {
			w.Header().Set(console.TokenHeader, fresh)
		}

		ctx := context.WithValue(r.Context(), userKey, claims.Username())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
