package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sightline-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Datasource is the optional external database queries are dispatched
	// to. With Type "none" the engine serves uploads from memory only.
	Datasource DatasourceConfig `yaml:"datasource"`

	// Engine holds query execution limits.
	Engine EngineConfig `yaml:"engine"`
}

// DatasourceConfig selects and configures the external database.
type DatasourceConfig struct {
	// Type is "none", "postgres", or "mssql".
	Type     string `yaml:"type" env:"DATASOURCE_TYPE" env-default:"none"`
	Host     string `yaml:"host" env:"DATASOURCE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DATASOURCE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DATASOURCE_USER" env-default:""`
	Password string `yaml:"-" env:"DATASOURCE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DATASOURCE_DATABASE" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"DATASOURCE_SSL_MODE" env-default:"prefer"`
	Encrypt  string `yaml:"encrypt" env:"DATASOURCE_ENCRYPT" env-default:"true"`
}

// EngineConfig holds query execution limits.
type EngineConfig struct {
	// RowLimit is the default row cap applied when a request carries none.
	RowLimit int `yaml:"row_limit" env:"ENGINE_ROW_LIMIT" env-default:"500"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time. A missing
// config.yaml is fine; environment variables and defaults apply alone.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Datasource.Type {
	case "none", "postgres", "mssql":
	default:
		return fmt.Errorf("unknown datasource type %q", c.Datasource.Type)
	}
	if c.Datasource.Type != "none" && c.Datasource.Database == "" {
		return fmt.Errorf("datasource type %q requires a database name", c.Datasource.Type)
	}
	if c.Engine.RowLimit <= 0 {
		return fmt.Errorf("engine row_limit must be positive")
	}
	return nil
}
