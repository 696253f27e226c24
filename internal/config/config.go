// Package config loads firerecord settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/firerecord/internal/schema"
	"github.com/rcliao/firerecord/internal/store"
)

// Store drivers.
const (
	DriverFirebase = "firebase"
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
)

// Environment variables.
const (
	EnvFirebaseName = "FIREBASE_NAME"
	EnvFirebaseURL  = "FIREBASE_URL"
	EnvFirebaseAuth = "FIREBASE_AUTH"
	EnvDriver       = "FIRERECORD_DRIVER"
	EnvDB           = "FIRERECORD_DB"
	EnvLogLevel     = "FIRERECORD_LOG_LEVEL"
	EnvLogFormat    = "FIRERECORD_LOG_FORMAT"
)

// Config is the complete configuration.
type Config struct {
	Driver   string             `yaml:"driver"`
	Firebase FirebaseConfig     `yaml:"firebase"`
	SQLite   LocalConfig        `yaml:"sqlite"`
	Bolt     LocalConfig        `yaml:"bolt"`
	Logging  LoggingConfig      `yaml:"logging"`
	Models   []schema.ModelSpec `yaml:"models"`
}

// FirebaseConfig addresses the hosted store. URL wins over Name.
type FirebaseConfig struct {
	Name    string        `yaml:"name"`    // database name, <name>.firebaseio.com
	URL     string        `yaml:"url"`     // full base URL
	Auth    string        `yaml:"auth"`    // database secret or ID token
	Timeout time.Duration `yaml:"timeout"` // per-request timeout
}

// LocalConfig locates a local store file.
type LocalConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Load reads path when it is non-empty, then applies environment overrides
// and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Parse decodes YAML from r without touching the environment beyond
// ${VAR} expansion.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	if err := decode(r, &cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvFirebaseName); v != "" {
		cfg.Firebase.Name = v
	}
	if v := os.Getenv(EnvFirebaseURL); v != "" {
		cfg.Firebase.URL = v
	}
	if v := os.Getenv(EnvFirebaseAuth); v != "" {
		cfg.Firebase.Auth = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.SQLite.Path = v
		cfg.Bolt.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Driver == "" {
		if cfg.Firebase.URL != "" || cfg.Firebase.Name != "" {
			cfg.Driver = DriverFirebase
		} else {
			cfg.Driver = DriverSQLite
		}
	}
	home, _ := os.UserHomeDir()
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(home, ".firerecord", "store.db")
	}
	if cfg.Bolt.Path == "" {
		cfg.Bolt.Path = filepath.Join(home, ".firerecord", "store.bolt")
	}
	if cfg.Firebase.Timeout == 0 {
		cfg.Firebase.Timeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	switch cfg.Driver {
	case DriverFirebase, DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unknown driver %q (want %s, %s or %s)", cfg.Driver, DriverFirebase, DriverSQLite, DriverBolt)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Logging.Format)
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if _, err := cfg.Registry(); err != nil {
		return err
	}
	return nil
}

// StoreAddress returns the base URL of the hosted store. It fails with
// store.ErrConfiguration when neither a URL nor a database name is set.
func (c *Config) StoreAddress() (string, error) {
	if c.Firebase.URL != "" {
		return c.Firebase.URL, nil
	}
	if c.Firebase.Name != "" {
		return store.DatabaseURL(c.Firebase.Name)
	}
	return "", fmt.Errorf("%w: set %s or %s", store.ErrConfiguration, EnvFirebaseURL, EnvFirebaseName)
}

// Registry builds the declared models.
func (c *Config) Registry() (*schema.Registry, error) {
	reg, err := schema.BuildRegistry(c.Models)
	if err != nil {
		return nil, fmt.Errorf("models: %w", err)
	}
	return reg, nil
}

// Logger builds the process logger. Console output goes to w in a
// human-readable form; json writes one object per line.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.WarnLevel
	}
	if c.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
