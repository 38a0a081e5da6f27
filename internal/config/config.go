package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Hostname is the public hostname where this service is reachable. It is
	// used to decide whether cookies need the Secure flag.
	Hostname string `env:"HOSTNAME" envDefault:"localhost"`

	// Port is the HTTP server port.
	Port int `env:"PORT" envDefault:"3000"`

	// DatabaseURL is either a SQLite file path or a Postgres connection string.
	DatabaseURL string `env:"DATABASE_URL" envDefault:"blog.db"`

	// BlobPath is the bbolt file holding uploaded images.
	BlobPath string `env:"BLOB_PATH" envDefault:"blobs.db"`

	// UploadSecret signs image upload URLs.
	UploadSecret string `env:"UPLOAD_SECRET,required"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	OrphanTTL       time.Duration `env:"ORPHAN_TTL" envDefault:"1h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	MaxUploadBytes  int           `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`

	// OTelEndpoint enables trace export when set, e.g. "localhost:4318".
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	// SecureCookies forces the Secure cookie flag on ("true") or off
	// ("false"). When empty it is on for any hostname other than localhost.
	SecureCookies string `env:"SECURE_COOKIES"`
}

const envPrefix = "BLOG_"

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// CookiesSecure reports whether session cookies should carry the Secure flag.
func (c *Config) CookiesSecure() bool {
	if v, err := strconv.ParseBool(c.SecureCookies); err == nil {
		return v
	}
	return c.Hostname != "localhost" && c.Hostname != "127.0.0.1"
}

// Load reads configuration from BLOG_* environment variables with sensible
// defaults. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("invalid %sPORT: %d", envPrefix, c.Port)
	case strings.TrimSpace(c.DatabaseURL) == "":
		return fmt.Errorf("%sDATABASE_URL is required", envPrefix)
	case len(c.UploadSecret) < 16:
		return fmt.Errorf("%sUPLOAD_SECRET must be at least 16 bytes", envPrefix)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("invalid %sMAX_UPLOAD_BYTES: %d", envPrefix, c.MaxUploadBytes)
	case c.SecureCookies != "" && !isBool(c.SecureCookies):
		return fmt.Errorf("invalid %sSECURE_COOKIES: %q", envPrefix, c.SecureCookies)
	case c.CleanupInterval <= 0:
		return fmt.Errorf("invalid %sCLEANUP_INTERVAL: %s", envPrefix, c.CleanupInterval)
	}
	return nil
}

func isBool(v string) bool {
	_, err := strconv.ParseBool(v)
	return err == nil
}
