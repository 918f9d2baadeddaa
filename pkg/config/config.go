package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for gameshelf-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional - in-memory cache is used when unset)
	Redis RedisConfig `yaml:"redis"`

	// External provider configuration
	Metadata MetadataProviderConfig `yaml:"metadata_provider"`
	Pricing  PricingProviderConfig  `yaml:"pricing_provider"`

	// Discovery configuration
	Discovery DiscoveryConfig `yaml:"discovery"`

	// AdminTokenSecret signs/verifies admin bearer tokens (HS256).
	// Server refuses admin endpoints if this is not set.
	AdminTokenSecret string `yaml:"-" env:"ADMIN_TOKEN_SECRET"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"gameshelf"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"gameshelf_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds Redis cache configuration.
// An empty host means Redis is not configured.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// MetadataProviderConfig holds the game metadata catalog API settings.
type MetadataProviderConfig struct {
	BaseURL string `yaml:"base_url" env:"METADATA_BASE_URL" env-default:"https://api.rawg.io/api"`
	APIKey  string `yaml:"-" env:"METADATA_API_KEY"` // Secret - not in YAML

	// Cache lifetimes for read-through caching of upstream responses.
	SearchTTL  time.Duration `yaml:"search_ttl" env:"METADATA_SEARCH_TTL" env-default:"1h"`
	DetailsTTL time.Duration `yaml:"details_ttl" env:"METADATA_DETAILS_TTL" env-default:"24h"`

	Timeout time.Duration `yaml:"timeout" env:"METADATA_TIMEOUT" env-default:"15s"`
}

// PricingProviderConfig holds the storefront pricing API settings.
type PricingProviderConfig struct {
	StoreBaseURL  string `yaml:"store_base_url" env:"PRICING_STORE_BASE_URL" env-default:"https://store.steampowered.com"`
	SearchBaseURL string `yaml:"search_base_url" env:"PRICING_SEARCH_BASE_URL" env-default:"https://store.steampowered.com"`

	DetailsTTL time.Duration `yaml:"details_ttl" env:"PRICING_DETAILS_TTL" env-default:"12h"`

	Timeout time.Duration `yaml:"timeout" env:"PRICING_TIMEOUT" env-default:"15s"`
}

// DiscoveryConfig tunes the unified search and eager import flow.
type DiscoveryConfig struct {
	// LocalLimit caps the number of local catalog rows returned per search.
	LocalLimit int `yaml:"local_limit" env:"DISCOVERY_LOCAL_LIMIT" env-default:"20"`
	// RemoteLimit caps how many remote candidates are considered per search.
	RemoteLimit int `yaml:"remote_limit" env:"DISCOVERY_REMOTE_LIMIT" env-default:"5"`
	// MinQueryLength rejects noise queries before they reach the providers.
	MinQueryLength int `yaml:"min_query_length" env:"DISCOVERY_MIN_QUERY_LENGTH" env-default:"2"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, METADATA_API_KEY, ADMIN_TOKEN_SECRET) must come from
// environment variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks cross-field constraints cleanenv cannot express.
func (c *Config) validate() error {
	if _, err := url.Parse(c.Metadata.BaseURL); err != nil {
		return fmt.Errorf("metadata_provider.base_url is not a valid URL: %w", err)
	}
	if _, err := url.Parse(c.Pricing.StoreBaseURL); err != nil {
		return fmt.Errorf("pricing_provider.store_base_url is not a valid URL: %w", err)
	}
	if c.Discovery.MinQueryLength < 1 {
		return fmt.Errorf("discovery.min_query_length must be at least 1")
	}
	if c.Discovery.LocalLimit < 1 || c.Discovery.RemoteLimit < 1 {
		return fmt.Errorf("discovery limits must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
