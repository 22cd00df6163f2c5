package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bingKegeta/GeoTourist-Backend/pkg/twofactor"
)

// Config represents the complete server configuration
type Config struct {
	Server       ServerConfig     `yaml:"server"`
	RelyingParty twofactor.Config `yaml:"relying_party"`
	Storage      StorageConfig    `yaml:"storage"`
	Auth         AuthConfig       `yaml:"auth"`
	Logging      LoggingConfig    `yaml:"logging"`
	Metrics      MetricsConfig    `yaml:"metrics"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the backing store for ceremony state. The memory
// backend holds everything in process and is meant for development; mongo
// points at the backend's existing database.
type StorageConfig struct {
	Backend  string `yaml:"backend"` // memory, mongo
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig controls post-ceremony token issuance
type AuthConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig controls the tokens issued after a verified ceremony
type JWTConfig struct {
	Secret    string        `yaml:"secret"`
	Issuer    string        `yaml:"issuer"`
	Audience  string        `yaml:"audience"`
	ExpiresIn time.Duration `yaml:"expires_in"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	return cfg
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("GEOTOURIST_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portEnv := os.Getenv("GEOTOURIST_PORT"); portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			log.Printf("Warning: invalid GEOTOURIST_PORT value %q, using default %d: %v",
				portEnv, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid GEOTOURIST_PORT value %q (out of range 1-65535), using default %d",
				portEnv, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if rpID := os.Getenv("GEOTOURIST_RP_ID"); rpID != "" {
		cfg.RelyingParty.RPID = rpID
	}
	if rpName := os.Getenv("GEOTOURIST_RP_NAME"); rpName != "" {
		cfg.RelyingParty.RPDisplayName = rpName
	}
	if origins := os.Getenv("GEOTOURIST_RP_ORIGINS"); origins != "" {
		cfg.RelyingParty.RPOrigins = strings.Split(origins, ",")
	}

	if uri := os.Getenv("GEOTOURIST_MONGO_URI"); uri != "" {
		cfg.Storage.Backend = "mongo"
		cfg.Storage.URI = uri
	}
	if db := os.Getenv("GEOTOURIST_MONGO_DATABASE"); db != "" {
		cfg.Storage.Database = db
	}

	if secret := os.Getenv("GEOTOURIST_JWT_SECRET"); secret != "" {
		cfg.Auth.JWT.Secret = secret
	}

	if level := os.Getenv("GEOTOURIST_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("GEOTOURIST_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
}

// SetDefaults fills unset fields with their defaults
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.RelyingParty.RPID == "" {
		c.RelyingParty.RPID = "tour-fusion.com"
	}
	if c.RelyingParty.RPDisplayName == "" {
		c.RelyingParty.RPDisplayName = "TourFusion"
	}
	c.RelyingParty.SetDefaults()
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "geotourist"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.RelyingParty.Validate(); err != nil {
		return fmt.Errorf("relying_party: %w", err)
	}

	switch c.Storage.Backend {
	case "memory":
	case "mongo":
		if c.Storage.URI == "" {
			return fmt.Errorf("storage uri is required for the mongo backend")
		}
		if c.Storage.Database == "" {
			return fmt.Errorf("storage database is required for the mongo backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or mongo)", c.Storage.Backend)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
