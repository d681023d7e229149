// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// RateLimit bounds inbound frames per connection with a token bucket.
type RateLimit struct {
	Burst          int           `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
}

// Config holds every setting of the relay process.
type Config struct {
	Port            string   `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64    `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	RateLimit       RateLimit
	SendQueueSize   int           `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	WriteWait       time.Duration `envconfig:"WRITE_WAIT" default:"10s"`
	PongWait        time.Duration `envconfig:"PONG_WAIT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"INFO"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"badger"`
	BadgerPath  string `envconfig:"BADGER_PATH" default:"data/chat"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	CensoredWords   []string `envconfig:"CENSORED_WORDS"`
	CensorCharacter string   `envconfig:"CENSOR_CHARACTER" default:"*"`
}

// Load reads .env (if present) and the environment, then sanitizes the result.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	cfg = Sanitize(cfg)

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		return Config{}, fmt.Errorf("unknown GIN_MODE %q", cfg.GinMode)
	}

	switch cfg.StoreDriver {
	case DriverBadger:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("STORE_DRIVER=%s requires DATABASE_URL", DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

// Default returns the settings Load yields on an empty environment.
func Default() Config {
	return Sanitize(Config{})
}

// Sanitize replaces unset or non-positive values with their defaults.
func Sanitize(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	cfg.AllowedOrigins = trimAll(cfg.AllowedOrigins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:8080"}
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = 10 * time.Second
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverBadger
	}
	if cfg.BadgerPath == "" {
		cfg.BadgerPath = "data/chat"
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	cfg.CensoredWords = trimAll(cfg.CensoredWords)
	if cfg.CensorCharacter == "" {
		cfg.CensorCharacter = "*"
	}
	return cfg
}

// CensorRune is the first rune of CensorCharacter.
func (c Config) CensorRune() rune {
	for _, r := range c.CensorCharacter {
		return r
	}
	return '*'
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
