// Package server serves the console API: login, the data source list and
// SQL execution.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/auth"
	"github.com/cybertec-postgresql/sqlconsole/internal/console"
	"github.com/cybertec-postgresql/sqlconsole/internal/database"
	"github.com/cybertec-postgresql/sqlconsole/internal/history"
	"github.com/cybertec-postgresql/sqlconsole/internal/logger"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

const shutdownTimeout = 30 * time.Second

// Server is the console HTTP server
type Server struct {
	config   *types.Config
	registry *database.Registry
	auth     *auth.Authenticator
	history  *history.Store // nil disables history
	networks []*net.IPNet   // empty allows every client
	mux      *http.ServeMux
}

// New creates a server. hist may be nil.
func New(cfg *types.Config, registry *database.Registry, authn *auth.Authenticator, hist *history.Store) (*Server, error) {
	networks, err := ParseNetworks(cfg.AllowedNetworks)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		registry: registry,
		auth:     authn,
		history:  hist,
		networks: networks,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST "+console.RouteLogin, s.handleLogin)
	s.mux.Handle("POST "+console.RouteDataSources, s.requireAuth(http.HandlerFunc(s.handleDataSources)))
	s.mux.Handle("POST "+console.RouteExecuteSQL, s.requireAuth(http.HandlerFunc(s.handleExecuteSQL)))
}

// Handler returns the server handler chain
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = s.limitBody(handler)
	handler = s.allowNetworks(handler)
	return newRequestLogger(handler)
}

// Run listens on the configured address and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          logger.Default().ErrorLog(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Console listening on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// ParseNetworks parses CIDR notations. A bare address is taken as a single
// host network.
func ParseNetworks(cidrs []string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, c := range cidrs {
		if ip := net.ParseIP(c); ip != nil {
			bits := 8 * net.IPv6len
			if ip4 := ip.To4(); ip4 != nil {
				ip, bits = ip4, 8*net.IPv4len
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			return nil, &types.ConfigError{
				Field:      "allowed_networks",
				Value:      c,
				Message:    err.Error(),
				Suggestion: "Use CIDR notation such as 10.0.0.0/8 or a single address",
			}
		}
		networks = append(networks, network)
	}
	return networks, nil
}
