package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the gateway's process configuration, populated from an
// optional YAML base file and then overridden by environment variables
// (spec §6's recognized options take precedence).
type Config struct {
	Version string `yaml:"version"`

	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Security      SecurityConfig      `yaml:"security"`
	API           APIConfig           `yaml:"api"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	FeatureFlags  FeatureFlagsConfig  `yaml:"feature_flags"`
	SalesSync     SalesSyncConfig     `yaml:"sales_sync"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type CacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      int    `yaml:"ttl_seconds"`
	Enabled  bool   `yaml:"enabled"`
}

// SecurityConfig holds the two secrets the process refuses to start
// without: the CRM-config encryption key and the admin-key surface.
type SecurityConfig struct {
	EncryptionKey string `yaml:"-"`
	AdminKey      string `yaml:"-"`
}

type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Environment    string   `yaml:"environment"` // production, staging, development
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
}

type FeatureFlagsConfig struct {
	UseConsolidatedMCPTools bool `yaml:"use_consolidated_mcp_tools"`
	EnableSalesSync         bool `yaml:"enable_sales_sync"`
	EnablePrometheusMetrics bool `yaml:"enable_prometheus_metrics"`
}

type SalesSyncConfig struct {
	Hour          int  `yaml:"hour"`
	SyncOnStartup bool `yaml:"sync_on_startup"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

// Load reads an optional YAML base file (if path is non-empty and
// exists) then applies environment variable overrides per spec §6.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		RateLimit: RateLimitConfig{PerMinute: 100, PerHour: 1000},
		Logging:   LoggingConfig{Level: "info"},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTL = n
		}
	}
	if v := os.Getenv("ENABLE_CACHE"); v != "" {
		cfg.Cache.Enabled, _ = strconv.ParseBool(v)
	}
	cfg.Security.EncryptionKey = os.Getenv("ENCRYPTION_KEY")
	cfg.Security.AdminKey = os.Getenv("ADMIN_KEY")

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.API.Environment = v
	}
	if cfg.API.Environment == "" {
		cfg.API.Environment = "development"
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = n
		}
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}

	if v := os.Getenv("RATE_LIMIT_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerMinute = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.PerHour = n
		}
	}

	if v := os.Getenv("USE_CONSOLIDATED_MCP_TOOLS"); v != "" {
		cfg.FeatureFlags.UseConsolidatedMCPTools, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("ENABLE_SALES_SYNC"); v != "" {
		cfg.FeatureFlags.EnableSalesSync, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("ENABLE_PROMETHEUS_METRICS"); v != "" {
		cfg.FeatureFlags.EnablePrometheusMetrics, _ = strconv.ParseBool(v)
	} else {
		cfg.FeatureFlags.EnablePrometheusMetrics = true
	}
	cfg.Metrics.Enabled = cfg.FeatureFlags.EnablePrometheusMetrics

	if v := os.Getenv("SALES_SYNC_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SalesSync.Hour = n
		}
	}
	if v := os.Getenv("SYNC_ON_STARTUP"); v != "" {
		cfg.SalesSync.SyncOnStartup, _ = strconv.ParseBool(v)
	}

	if v := os.Getenv("JSON_LOGS"); v != "" {
		cfg.Logging.JSON, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
