package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/internal/auth"
	"github.com/cybertec-postgresql/sqlconsole/internal/database"
	"github.com/cybertec-postgresql/sqlconsole/internal/server"
	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

// Config is an alias for the shared Config type
type Config = types.Config

// ConfigError is an alias for the shared ConfigError type
type ConfigError = types.ConfigError

const (
	maxRowsLimit     = 100000
	maxParallelism   = 100
	minSecretLength  = 16
	defaultListen    = "127.0.0.1:8080"
	defaultHistory   = ".sqlconsole/history.json"
	defaultBodyLimit = 1 << 20
)

// DefaultConfig provides default configuration values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxRows:         1000,
		Parallelism:     1,
		Listen:          defaultListen,
		MaxRequestBytes: defaultBodyLimit,
		TokenTTL:        30 * time.Minute,
		HistoryFile:     defaultHistory,
		Verbose:         false,
	}
}

// LoadConfigFile reads a YAML configuration file over the defaults. An empty
// path returns the defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Overrides holds command-line flag values. Zero values leave the
// configuration unchanged.
type Overrides struct {
	Listen      string
	Timeout     time.Duration
	MaxRows     int
	Parallelism int
	HistoryFile string
	TokenSecret string
	Verbose     bool
}

// ApplyFlagsToConfig applies command-line flag values to configuration
func ApplyFlagsToConfig(c *Config, o Overrides) {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.MaxRows != 0 {
		c.MaxRows = o.MaxRows
	}
	if o.Parallelism != 0 {
		c.Parallelism = o.Parallelism
	}
	if o.HistoryFile != "" {
		c.HistoryFile = o.HistoryFile
	}
	if o.TokenSecret != "" {
		c.TokenSecret = o.TokenSecret
	}
	if o.Verbose {
		c.Verbose = true
	}
}

// Validate checks the configuration. serving adds the checks that only
// matter to the HTTP console.
func Validate(c *Config, serving bool) error {
	if c.Timeout <= 0 {
		return &ConfigError{
			Field:      "timeout",
			Value:      c.Timeout,
			Message:    "must be positive",
			Suggestion: "Use a duration such as 30s or 2m",
		}
	}
	if c.MaxRows < 1 || c.MaxRows > maxRowsLimit {
		return &ConfigError{
			Field:      "max_rows",
			Value:      c.MaxRows,
			Message:    fmt.Sprintf("must be between 1 and %d", maxRowsLimit),
			Suggestion: "Lower the limit and narrow the query instead",
		}
	}
	if c.Parallelism < 1 || c.Parallelism > maxParallelism {
		return &ConfigError{
			Field:      "parallel",
			Value:      c.Parallelism,
			Message:    fmt.Sprintf("must be between 1 and %d", maxParallelism),
			Suggestion: "Use 1 for sequential execution",
		}
	}

	seen := make(map[string]bool)
	for _, ds := range c.DataSources {
		if err := validateDataSource(ds); err != nil {
			return err
		}
		if seen[ds.Name] {
			return &ConfigError{
				Field:      "data_sources",
				Value:      ds.Name,
				Message:    fmt.Sprintf("duplicate data source name %q", ds.Name),
				Suggestion: "Give every data source a unique name",
			}
		}
		seen[ds.Name] = true
	}

	if _, err := server.ParseNetworks(c.AllowedNetworks); err != nil {
		return err
	}

	if !serving {
		return nil
	}
	if len(c.TokenSecret) < minSecretLength {
		return &ConfigError{
			Field:      "token_secret",
			Value:      "(hidden)",
			Message:    fmt.Sprintf("must be at least %d bytes", minSecretLength),
			Suggestion: "Set token_secret in the config file or SQLCONSOLE_TOKEN_SECRET",
		}
	}
	if c.TokenTTL <= 0 {
		return &ConfigError{
			Field:   "token_ttl",
			Value:   c.TokenTTL,
			Message: "must be positive",
		}
	}
	if c.MaxRequestBytes <= 0 {
		return &ConfigError{
			Field:   "max_request_bytes",
			Value:   c.MaxRequestBytes,
			Message: "must be positive",
		}
	}
	if len(c.Users) == 0 {
		return &ConfigError{
			Field:      "users",
			Message:    "no console users configured",
			Suggestion: "Add a user with a hash from 'sqlconsole hash-password'",
		}
	}
	for _, u := range c.Users {
		if u.Name == "" || !auth.ValidHash(u.PasswordHash) {
			return &ConfigError{
				Field:      "users",
				Value:      u.Name,
				Message:    fmt.Sprintf("user %q needs a name and a bcrypt password_hash", u.Name),
				Suggestion: "Generate the hash with 'sqlconsole hash-password'",
			}
		}
	}
	return nil
}

func validateDataSource(ds types.DataSource) error {
	if ds.Name == "" {
		return &ConfigError{
			Field:   "data_sources",
			Message: "data source without a name",
		}
	}
	kind, err := database.ParseKind(ds.Kind)
	if err != nil {
		return &ConfigError{
			Field:      "data_sources." + ds.Name + ".kind",
			Value:      ds.Kind,
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Use one of %v", database.Kinds()),
		}
	}
	if ds.DSN == "" {
		return &ConfigError{
			Field:   "data_sources." + ds.Name + ".dsn",
			Message: "must not be empty",
		}
	}
	if kind == database.KindMySQL {
		if _, err := mysql.ParseDSN(ds.DSN); err != nil {
			return &ConfigError{
				Field:      "data_sources." + ds.Name + ".dsn",
				Value:      ds.DSN,
				Message:    err.Error(),
				Suggestion: "Use the format user:password@tcp(host:3306)/dbname",
			}
		}
	}
	return nil
}

// AdHocDataSource builds a data source from --kind/--dsn flags
func AdHocDataSource(kind, dsn string) (types.DataSource, error) {
	ds := types.DataSource{Name: kind, Kind: kind, DSN: dsn}
	if err := validateDataSource(ds); err != nil {
		return types.DataSource{}, err
	}
	return ds, nil
}
