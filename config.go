package queuedash

import (
	"time"
)

// Config defines gateway settings. Authorize and Events are runtime
// capabilities injected by the host process, not file configuration.
type Config struct {
	// BasePath is the mount point of the HTTP surface. Default "/".
	BasePath string `mapstructure:"base_path"`
	// ReadOnly rejects every mutating operation unconditionally.
	ReadOnly bool `mapstructure:"read_only"`
	// HeartbeatInterval is the SSE liveness comment interval in seconds.
	// Default 15.
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	// StreamBuffer is the per-connection event buffer size. Events arriving
	// while the buffer is full are dropped for that viewer. Default 64.
	StreamBuffer int `mapstructure:"stream_buffer"`

	// Authorize, when set, is consulted per mutating request after the
	// read-only check.
	Authorize Authorizer `mapstructure:"-"`
	// Events holds the upstream event sources fanned out on /api/events.
	Events []EventSource `mapstructure:"-"`
}

func (c *Config) InitDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/"
	}

	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 15
	}

	if c.StreamBuffer == 0 {
		c.StreamBuffer = 64
	}
}

func (c *Config) heartbeat() time.Duration {
	return time.Duration(c.HeartbeatInterval) * time.Second
}
