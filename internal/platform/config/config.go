// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config reads the server settings from the environment with
caarlos0/env.

The admin allow-list (ADMIN_EMAILS) is configuration, never source. A [Config]
is loaded once in main and handed to constructors; nothing reads it globally.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// CallbackPath is the page that completes provider sign-in.
const CallbackPath = "/auth/callback"

// Config is the runtime configuration of the API server.
type Config struct {
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	DatabaseURL   string `env:"DATABASE_URL,required"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`
	RedisURL      string `env:"REDIS_URL,required"`

	// RS256 key pair for access tokens.
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	AdminEmails          []string      `env:"ADMIN_EMAILS" envSeparator:","`
	SessionLookupTimeout time.Duration `env:"SESSION_LOOKUP_TIMEOUT" envDefault:"3s"`
	CookieSecure         bool          `env:"COOKIE_SECURE" envDefault:"true"`

	// PublicOrigin is where browsers reach the server; provider redirects are built from it.
	PublicOrigin        string `env:"PUBLIC_ORIGIN" envDefault:"http://localhost:8080"`
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"essence.app"`

	CatalogBaseURL  string        `env:"CATALOG_BASE_URL"  envDefault:"https://scriptblox-api-proxy.vercel.app"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"2m"`

	// Discord sign-in stays off until both client values are set.
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string `env:"DISCORD_REDIRECT_URL"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads from environ instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(options env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg.PublicOrigin = strings.TrimRight(cfg.PublicOrigin, "/")
	if cfg.DiscordRedirectURL == "" {
		cfg.DiscordRedirectURL = cfg.PublicOrigin + CallbackPath
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.SessionLookupTimeout <= 0 {
		errs = append(errs, errors.New("SESSION_LOOKUP_TIMEOUT must be positive"))
	}
	if c.CatalogCacheTTL < 0 {
		errs = append(errs, errors.New("CATALOG_CACHE_TTL must not be negative"))
	}
	if c.IsProduction() && !c.CookieSecure {
		errs = append(errs, errors.New("COOKIE_SECURE cannot be disabled in production"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DiscordEnabled reports whether Discord sign-in is configured.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// OriginSuffix is the CORS allow-list suffix.
func (c *Config) OriginSuffix() string {
	return c.AllowedOriginSuffix
}
