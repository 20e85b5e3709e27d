// Package config loads application configuration from a YAML file and
// environment variables. Environment variables use the NOCIQ_ prefix;
// the first underscore separates the section from the key, e.g.
// NOCIQ_SERVER_PORT or NOCIQ_AUTH_SECRET_KEY.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Storage   StorageConfig   `koanf:"storage"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	Geocoding GeocodingConfig `koanf:"geocoding"`
	Kafka     KafkaConfig     `koanf:"kafka"`
	CORS      CORSConfig      `koanf:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	// Driver is either "postgres" or "firestore".
	Driver    string          `koanf:"driver"`
	Firestore FirestoreConfig `koanf:"firestore"`
}

// FirestoreConfig holds Firestore settings used when the firestore
// storage driver is selected.
type FirestoreConfig struct {
	ProjectID          string `koanf:"project_id"`
	OutagesCollection  string `koanf:"outages_collection"`
	PaymentsCollection string `koanf:"payments_collection"`
	RCACollection      string `koanf:"rca_collection"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// GeocodingConfig holds Nominatim lookup settings.
type GeocodingConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// KafkaConfig holds event publishing settings. Publishing is disabled
// when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

const envPrefix = "NOCIQ_"

// envKeyTransform maps an environment variable to a koanf key. Only the
// section separator becomes a dot; underscores inside key names survive,
// so NOCIQ_AUTH_SECRET_KEY binds auth.secret_key and
// NOCIQ_DATABASE_MAX_OPEN_CONNS binds database.max_open_conns. The
// firestore subsection is the one nested section and is mapped
// explicitly.
func envKeyTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))

	if rest, ok := strings.CutPrefix(key, "storage_firestore_"); ok {
		return "storage.firestore." + rest
	}

	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// Load reads configuration from the given YAML file path (optional) and
// NOCIQ_-prefixed environment variables. Environment variables override
// file values.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := defaultConfig()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Storage: StorageConfig{
			Driver: "postgres",
			Firestore: FirestoreConfig{
				OutagesCollection:  "outages",
				PaymentsCollection: "payments",
				RCACollection:      "rca_reports",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Geocoding: GeocodingConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres storage driver")
		}
	case "firestore":
		if c.Storage.Firestore.ProjectID == "" {
			return fmt.Errorf("storage.firestore.project_id is required for the firestore storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}

	return nil
}
