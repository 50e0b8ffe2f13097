package config

import "github.com/crisisops/sitrack/errors"

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "sitrack.db"

	// Server port: 0 is invalid (omit for default), negative is invalid
	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && *c.Server.Port < 0 {
		return errors.Newf("server.port must be positive, got %d", *c.Server.Port)
	}

	// Chain depth: 0 = engine default, negative = invalid
	if c.Tracking.MaxChainDepth < 0 {
		return errors.Newf("tracking.max_chain_depth must be >= 0, got %d", c.Tracking.MaxChainDepth)
	}

	return nil
}
