package types

import (
	"fmt"
	"time"
)

// Config holds runtime configuration combining the config file, flags and defaults
type Config struct {
	// Data sources and console users
	DataSources []DataSource `yaml:"data_sources"`
	Users       []User       `yaml:"users"`

	// Execution
	Timeout     time.Duration `yaml:"timeout"`  // Per-statement timeout
	MaxRows     int           `yaml:"max_rows"` // Rows returned per result
	Parallelism int           `yaml:"parallel"` // Max concurrent scripts (1 = sequential)

	// Server
	Listen          string        `yaml:"listen"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	TokenSecret     string        `yaml:"token_secret"`
	AllowedNetworks []string      `yaml:"allowed_networks"`

	// Output
	HistoryFile string `yaml:"history_file"` // Executed statement history, empty disables
	Verbose     bool   `yaml:"verbose"`      // Enable debug logging
}

// DataSource names a database the console can execute against
type DataSource struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // postgres, sqlite or mysql
	DSN  string `yaml:"dsn"`
}

// User is a console login
type User struct {
	Name         string `yaml:"name"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// DataSource returns the data source with the given name
func (c *Config) DataSource(name string) (DataSource, bool) {
	for _, ds := range c.DataSources {
		if ds.Name == name {
			return ds, true
		}
	}
	return DataSource{}, false
}

// ConfigError describes an invalid configuration value
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e *ConfigError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid %s: %s\nSuggestion: %s", e.Field, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// DataSourceInfo is the public view of a data source
type DataSourceInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Result is the outcome of executing one SQL text
type Result struct {
	Query        bool          `json:"query"`             // Statement produced a row set
	Columns      []string      `json:"columns,omitempty"` // Column names, in order
	Rows         [][]any       `json:"rows,omitempty"`    // At most MaxRows rows
	Truncated    bool          `json:"truncated,omitempty"`
	RowsAffected int64         `json:"rowsAffected"`
	Notices      []string      `json:"notices,omitempty"` // Server notices raised while executing
	Duration     time.Duration `json:"duration"`
}
