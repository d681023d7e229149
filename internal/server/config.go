package server

import (
	"time"

	"github.com/Tyrowin/chatrelay/internal/config"
)

// Options holds the transport settings of a Relay.
type Options struct {
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      config.RateLimit
	SendQueueSize  int
	WriteWait      time.Duration
	PongWait       time.Duration
}

// NewOptions extracts the transport settings from cfg.
func NewOptions(cfg config.Config) Options {
	return sanitizeOptions(Options{
		AllowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
		MaxMessageSize: cfg.MaxMessageSize,
		RateLimit:      cfg.RateLimit,
		SendQueueSize:  cfg.SendQueueSize,
		WriteWait:      cfg.WriteWait,
		PongWait:       cfg.PongWait,
	})
}

func sanitizeOptions(opts Options) Options {
	defaults := config.Default()
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaults.MaxMessageSize
	}
	if opts.RateLimit.Burst <= 0 {
		opts.RateLimit.Burst = defaults.RateLimit.Burst
	}
	if opts.RateLimit.RefillInterval <= 0 {
		opts.RateLimit.RefillInterval = defaults.RateLimit.RefillInterval
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaults.SendQueueSize
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaults.WriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	return opts
}

// pingPeriod must stay below PongWait so a healthy peer never times out.
func (o Options) pingPeriod() time.Duration {
	return o.PongWait * 9 / 10
}
