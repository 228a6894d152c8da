package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envPrefix is prepended to every variable name, e.g. YITRO_AUTH_SECRET.
const envPrefix = "YITRO_"

// Config holds all runtime configuration for the API server.
type Config struct {
	HTTP     HTTP     `envPrefix:"HTTP_"`
	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"AUTH_"`
}

// HTTP contains listener parameters.
type HTTP struct {
	Addr string `env:"ADDR" envDefault:":8080"`
}

// Database contains connection parameters for the relational store.
type Database struct {
	DSN string `env:"DSN,notEmpty"`
}

// Auth contains token signing and password hashing parameters.
// The signing secret is mandatory: there is deliberately no default,
// so a server without YITRO_AUTH_SECRET refuses to start.
type Auth struct {
	Secret     string        `env:"SECRET,notEmpty"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
