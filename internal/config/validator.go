package config

import (
	"fmt"
	"strings"
)

var commonPasswords = map[string]bool{
	"password": true, "admin": true, "changeme": true, "letmein": true,
	"12345678": true, "administrator": true,
}

// Validate performs startup validation; the process MUST refuse to
// start if any of these checks fail (spec §5 Shared Resource Policy,
// §6 environment variables, §7 error kinds).
func (c *Config) Validate() error {
	if err := c.validateSecurity(); err != nil {
		return fmt.Errorf("security config error: %v", err)
	}
	if err := c.validateAPI(); err != nil {
		return fmt.Errorf("api config error: %v", err)
	}
	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config error: %v", err)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(c.Security.AdminKey) < 16 {
		return fmt.Errorf("ADMIN_KEY must be at least 16 characters")
	}
	if commonPasswords[strings.ToLower(c.Security.AdminKey)] {
		return fmt.Errorf("ADMIN_KEY must not be a common password")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.API.Environment == "production" {
		for _, origin := range c.API.AllowedOrigins {
			if strings.TrimSpace(origin) == "*" {
				return fmt.Errorf("wildcard ALLOWED_ORIGINS is forbidden in production")
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// IsFeatureEnabled checks a named feature flag by its config-level name.
func (c *Config) IsFeatureEnabled(name string) bool {
	switch name {
	case "USE_CONSOLIDATED_MCP_TOOLS":
		return c.FeatureFlags.UseConsolidatedMCPTools
	case "ENABLE_SALES_SYNC":
		return c.FeatureFlags.EnableSalesSync
	case "ENABLE_PROMETHEUS_METRICS":
		return c.FeatureFlags.EnablePrometheusMetrics
	default:
		return false
	}
}
