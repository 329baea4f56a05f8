package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/auth"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlconsole.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %v", cfg.Timeout)
	}
	if cfg.MaxRows != 1000 {
		t.Errorf("expected default max rows 1000, got %d", cfg.MaxRows)
	}
	if cfg.Parallelism != 1 {
		t.Errorf("expected default parallelism 1, got %d", cfg.Parallelism)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("expected default listen address, got '%s'", cfg.Listen)
	}
	if cfg.HistoryFile != ".sqlconsole/history.json" {
		t.Errorf("expected default history file '.sqlconsole/history.json', got '%s'", cfg.HistoryFile)
	}
	if cfg.Verbose {
		t.Errorf("expected default verbose false, got %v", cfg.Verbose)
	}
	if err := Validate(cfg, false); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	// Each call returns a fresh copy
	cfg.MaxRows = 5
	if DefaultConfig().MaxRows != 1000 {
		t.Error("DefaultConfig shares state between calls")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
listen: "0.0.0.0:9000"
timeout: 2m
max_rows: 50
token_ttl: 1h
allowed_networks: ["10.0.0.0/8"]
data_sources:
  - name: main
    kind: postgres
    dsn: "postgres://app@localhost/app"
  - name: local
    kind: sqlite
    dsn: "file:app.db"
users:
  - name: admin
    password_hash: "$2a$10$abcdefghijklmnopqrstuu"
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.Timeout != 2*time.Minute || cfg.MaxRows != 50 || cfg.TokenTTL != time.Hour {
		t.Errorf("scalar values not loaded: %+v", cfg)
	}
	if len(cfg.DataSources) != 2 || cfg.DataSources[1].Kind != "sqlite" {
		t.Errorf("data sources = %+v", cfg.DataSources)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].PasswordHash == "" {
		t.Errorf("users = %+v", cfg.Users)
	}
	// Unset keys keep their defaults
	if cfg.Parallelism != 1 || cfg.MaxRequestBytes != 1<<20 {
		t.Errorf("defaults lost: parallel=%d max_request_bytes=%d", cfg.Parallelism, cfg.MaxRequestBytes)
	}
	if ds, ok := cfg.DataSource("main"); !ok || ds.DSN != "postgres://app@localhost/app" {
		t.Errorf("DataSource(main) = %+v, %v", ds, ok)
	}
}

func TestLoadConfigFile_Errors(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadConfigFile(writeConfig(t, "max_rowz: 5\n")); err == nil {
		t.Error("expected error for unknown key")
	}
	if _, err := LoadConfigFile(writeConfig(t, "timeout: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}

	cfg, err := LoadConfigFile(writeConfig(t, ""))
	if err != nil || cfg.MaxRows != 1000 {
		t.Errorf("empty file: %+v, %v", cfg, err)
	}
	cfg, err = LoadConfigFile("")
	if err != nil || cfg.Timeout != 30*time.Second {
		t.Errorf("no file: %+v, %v", cfg, err)
	}
}

func TestApplyFlagsToConfig(t *testing.T) {
	cfg := DefaultConfig()
	ApplyFlagsToConfig(cfg, Overrides{
		Listen:      ":9999",
		Timeout:     time.Minute,
		MaxRows:     10,
		Parallelism: 4,
		HistoryFile: "h.json",
		TokenSecret: "s",
		Verbose:     true,
	})
	if cfg.Listen != ":9999" || cfg.Timeout != time.Minute || cfg.MaxRows != 10 || cfg.Parallelism != 4 ||
		cfg.HistoryFile != "h.json" || cfg.TokenSecret != "s" || !cfg.Verbose {
		t.Errorf("flags not applied: %+v", cfg)
	}

	// Zero values keep the configured ones
	ApplyFlagsToConfig(cfg, Overrides{})
	if cfg.MaxRows != 10 || !cfg.Verbose {
		t.Errorf("zero overrides changed config: %+v", cfg)
	}
}

func validServeConfig(t *testing.T) *Config {
	t.Helper()
	hash, err := auth.HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.TokenSecret = "0123456789abcdef"
	cfg.Users = []types.User{{Name: "admin", PasswordHash: hash}}
	cfg.DataSources = []types.DataSource{
		{Name: "main", Kind: "postgres", DSN: "postgres://localhost/app"},
		{Name: "shop", Kind: "mariadb", DSN: "app:pw@tcp(localhost:3306)/shop"},
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		serving   bool
		mutate    func(*Config)
		wantField string
	}{
		{"valid", true, func(*Config) {}, ""},
		{"zero timeout", false, func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"max rows too small", false, func(c *Config) { c.MaxRows = 0 }, "max_rows"},
		{"max rows too large", false, func(c *Config) { c.MaxRows = 100001 }, "max_rows"},
		{"parallel too large", false, func(c *Config) { c.Parallelism = 101 }, "parallel"},
		{"duplicate name", false, func(c *Config) { c.DataSources[1].Name = "main" }, "data_sources"},
		{"missing name", false, func(c *Config) { c.DataSources[0].Name = "" }, "data_sources"},
		{"unknown kind", false, func(c *Config) { c.DataSources[0].Kind = "oracle" }, "data_sources.main.kind"},
		{"empty dsn", false, func(c *Config) { c.DataSources[0].DSN = "" }, "data_sources.main.dsn"},
		{"bad mysql dsn", false, func(c *Config) { c.DataSources[1].DSN = "no slash here" }, "data_sources.shop.dsn"},
		{"bad network", false, func(c *Config) { c.AllowedNetworks = []string{"10.0.0.0/99"} }, "allowed_networks"},
		{"short secret ignored when not serving", false, func(c *Config) { c.TokenSecret = "" }, ""},
		{"short secret", true, func(c *Config) { c.TokenSecret = "short" }, "token_secret"},
		{"zero token ttl", true, func(c *Config) { c.TokenTTL = 0 }, "token_ttl"},
		{"zero body limit", true, func(c *Config) { c.MaxRequestBytes = 0 }, "max_request_bytes"},
		{"no users", true, func(c *Config) { c.Users = nil }, "users"},
		{"plain password", true, func(c *Config) { c.Users[0].PasswordHash = "secret" }, "users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServeConfig(t)
			tt.mutate(cfg)
			err := Validate(cfg, tt.serving)

			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
			if !strings.Contains(err.Error(), "invalid "+tt.wantField) {
				t.Errorf("Error() = %q", err.Error())
			}
		})
	}
}

func TestAdHocDataSource(t *testing.T) {
	ds, err := AdHocDataSource("sqlite", ":memory:")
	if err != nil || ds.Name != "sqlite" || ds.DSN != ":memory:" {
		t.Errorf("AdHocDataSource() = %+v, %v", ds, err)
	}
	if _, err := AdHocDataSource("db2", "x"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
