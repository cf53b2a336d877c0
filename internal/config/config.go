package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the portal's configuration.
type Config struct {
	Server struct {
		Port                   string `yaml:"port"`
		ReadTimeoutSeconds     int64  `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds    int64  `yaml:"write_timeout_seconds"`
		ShutdownTimeoutSeconds int64  `yaml:"shutdown_timeout_seconds"`
	} `yaml:"server"`
	API struct {
		BaseURL        string `yaml:"base_url"`
		PathPrefix     string `yaml:"path_prefix"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"api"`
	Session struct {
		CookieName   string `yaml:"cookie_name"`
		CookieSecret string `yaml:"cookie_secret"`
		CookieSecure bool   `yaml:"cookie_secure"`
		MaxAgeHours  int64  `yaml:"max_age_hours"`
	} `yaml:"session"`
	Auth struct {
		DevLogin bool `yaml:"dev_login"`
	} `yaml:"auth"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Telemetry struct {
		OTLPEndpoint string `yaml:"otlp_endpoint"`
		Insecure     bool   `yaml:"insecure"`
	} `yaml:"telemetry"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns a configuration suitable for local development: the
// backend is expected on localhost:3000 and the portal listens on 8080.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeoutSeconds = 10
	cfg.Server.WriteTimeoutSeconds = 15
	cfg.Server.ShutdownTimeoutSeconds = 20
	cfg.API.BaseURL = "http://localhost:3000"
	cfg.API.PathPrefix = "/api"
	cfg.API.TimeoutSeconds = 30
	cfg.Session.CookieName = "token"
	cfg.Session.MaxAgeHours = 72
	cfg.Log.Level = "info"
	cfg.Metrics.Enabled = true
	return cfg
}

// LoadConfig reads configuration from the specified YAML file on top of the
// defaults and applies PORTAL_* environment overrides. A missing file is
// not an error. Variables from a .env file in the working directory are
// loaded first when the file exists.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			defer file.Close()
			decoder := yaml.NewDecoder(file)
			if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Port, "PORTAL_PORT")
	setString(&c.API.BaseURL, "PORTAL_API_URL")
	setString(&c.API.PathPrefix, "PORTAL_API_PREFIX")
	setString(&c.Session.CookieName, "PORTAL_COOKIE_NAME")
	setString(&c.Session.CookieSecret, "PORTAL_COOKIE_SECRET")
	setString(&c.Log.Level, "PORTAL_LOG_LEVEL")
	setString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")

	for key, dst := range map[string]*bool{
		"PORTAL_COOKIE_SECURE":        &c.Session.CookieSecure,
		"PORTAL_DEV_LOGIN":            &c.Auth.DevLogin,
		"PORTAL_LOG_DEVELOPMENT":      &c.Log.Development,
		"PORTAL_METRICS_ENABLED":      &c.Metrics.Enabled,
		"OTEL_EXPORTER_OTLP_INSECURE": &c.Telemetry.Insecure,
	} {
		val, ok := os.LookupEnv(key)
		if !ok || val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid boolean in %s: %w", key, err)
		}
		*dst = b
	}
	return nil
}

func setString(dst *string, key string) {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		*dst = val
	}
}

// Validate checks that the configuration can be used to start the portal.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.PathPrefix != "" && !strings.HasPrefix(c.API.PathPrefix, "/") {
		return fmt.Errorf("api.path_prefix must start with '/', got %q", c.API.PathPrefix)
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name must not be empty")
	}
	if c.Session.MaxAgeHours <= 0 {
		return fmt.Errorf("session.max_age_hours must be > 0")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

// APITimeout returns the overall timeout for one backend call. Zero disables it.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// SessionMaxAge returns the lifetime of the session cookie.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAgeHours) * time.Hour
}

// ShutdownTimeout returns how long the server waits for in-flight requests on stop.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
