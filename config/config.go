// Package config loads sitrack configuration from TOML files and the
// environment via Viper. Precedence, lowest to highest: system config,
// user config, project config (found by walking up from the working
// directory), environment variables.
package config

import "fmt"

// Config is the sitrack configuration tree.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the sitrack HTTP server.
type ServerConfig struct {
	Port           *int     `mapstructure:"port"` // nil = default, 0 is invalid (omit for default)
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TrackingConfig configures the tracking engine.
type TrackingConfig struct {
	MaxChainDepth int    `mapstructure:"max_chain_depth"` // interlock chain depth cap (0 = engine default)
	FixturesPath  string `mapstructure:"fixtures_path"`   // optional YAML seed data loaded at startup
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	JSON bool `mapstructure:"json"` // JSON output instead of the console encoder
}

// Server port constants.
const (
	DefaultServerPort = 8711
)

// File system constants.
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// GetDatabasePath returns the configured database path.
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "sitrack.db"
	}
	return c.Database.Path
}

// GetServerPort returns the configured port, or the default.
func (c *Config) GetServerPort() int {
	if c.Server.Port == nil || *c.Server.Port == 0 {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// GetServerAllowedOrigins returns the allowed CORS origins.
func (c *Config) GetServerAllowedOrigins() []string {
	if len(c.Server.AllowedOrigins) == 0 {
		return []string{
			"http://localhost",
			"https://localhost",
			"http://127.0.0.1",
			"https://127.0.0.1",
		}
	}
	return c.Server.AllowedOrigins
}

// String returns a short summary of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Server: {Port: %d}, Tracking: {MaxChainDepth: %d}}",
		c.GetDatabasePath(), c.GetServerPort(), c.Tracking.MaxChainDepth)
}
