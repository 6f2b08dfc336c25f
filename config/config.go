/*
Package config loads runtime configuration for the attendance engine.

SOURCES (lowest to highest precedence):
  1. Defaults (SetDefaults)
  2. Config file: --config path, or ./attendance.toml if present
  3. .env file in the working directory (loaded into the environment)
  4. Environment variables, prefix ATTENDANCE_ (server.port -> ATTENDANCE_SERVER_PORT)

KEYS:
  server.port                    HTTP port (8080)
  server.allowed_origins         CORS origins
  server.write_rate_per_second   Token refill rate for mutating routes (20)
  server.write_burst             Burst size for mutating routes (40)
  storage.dir                    Directory holding attendance_YYYY-MM-DD.csv files
  roster.backend                 "memory" or "sqlite"
  roster.db_path                 SQLite path when backend is sqlite
  seed.sample_students           Preload the sample roster on startup
  log.json / log.level           Logger output mode and level

SEE ALSO:
  - cmd/server/main.go: --config flag
  - logger/logger.go: consumes log.*
*/
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "attendance.toml"

// Roster backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Roster  RosterConfig  `mapstructure:"roster"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	WriteRatePerSecond float64  `mapstructure:"write_rate_per_second"` // 0 disables limiting
	WriteBurst         int      `mapstructure:"write_burst"`
}

// StorageConfig configures the daily record files.
type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

// RosterConfig selects the roster backend.
type RosterConfig struct {
	Backend string `mapstructure:"backend"`
	DBPath  string `mapstructure:"db_path"`
}

// SeedConfig controls startup data.
type SeedConfig struct {
	SampleStudents bool `mapstructure:"sample_students"`
}

// LogConfig configures logging.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.write_rate_per_second", 20.0)
	v.SetDefault("server.write_burst", 40)

	v.SetDefault("storage.dir", "attendance_data")

	v.SetDefault("roster.backend", BackendMemory)
	v.SetDefault("roster.db_path", "roster.db")

	v.SetDefault("seed.sample_students", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// New returns a viper instance wired with defaults and environment binding.
// configPath may be empty.
func New(configPath string) (*viper.Viper, error) {
	// .env is optional; a missing file is the normal case.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()
	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configPath == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configPath = DefaultConfigFile
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
		}
	}
	return v, nil
}

// Load reads configuration from all sources and validates it.
func Load(configPath string) (*Config, error) {
	v, err := New(configPath)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from a prepared viper instance.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Newf("server.port out of range: %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		return errors.New("storage.dir must not be empty")
	}
	switch c.Roster.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.Roster.DBPath) == "" {
			return errors.New("roster.db_path is required for the sqlite backend")
		}
	default:
		return errors.Newf("unknown roster.backend %q (want %q or %q)",
			c.Roster.Backend, BackendMemory, BackendSQLite)
	}
	if c.Server.WriteRatePerSecond < 0 {
		return errors.New("server.write_rate_per_second must not be negative")
	}
	return nil
}
