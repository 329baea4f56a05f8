package integration_test

import (
	"net/http/httptest"
	"testing"

	"github.com/cybertec-postgresql/sqlconsole/internal/server"
)

// newTestServer serves srv on a loopback port and returns its base URL
func newTestServer(t *testing.T, srv *server.Server) string {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}
