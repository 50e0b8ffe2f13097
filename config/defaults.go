package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "sitrack.db")

	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	})

	// Tracking engine defaults
	v.SetDefault("tracking.max_chain_depth", 16)

	// Logging defaults
	v.SetDefault("logging.json", false)
}

// BindSensitiveEnvVars explicitly binds deployment-specific configuration to
// environment variables.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "SITRACK_DATABASE_PATH")
	v.BindEnv("server.port", "SITRACK_SERVER_PORT")
	v.BindEnv("tracking.fixtures_path", "SITRACK_TRACKING_FIXTURES_PATH")
}
