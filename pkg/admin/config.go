package admin

import "time"

// Config configures the admin HTTP server.
type Config struct {
	// Addr is the listen address. Port 0 picks a free port.
	// Default: ":9990"
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 10s
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 10s
	WriteTimeout time.Duration

	// IdleTimeout bounds keep-alive connections.
	// Default: 60s
	IdleTimeout time.Duration

	// DeltaInterval is how often the sampler records counter deltas.
	// Default: 1m
	DeltaInterval time.Duration

	// EnablePprof mounts chi's profiler under /admin/debug.
	EnablePprof bool

	// TokenSecret, when non-empty, requires an HS256 bearer token with the
	// admin:shutdown scope on POST /admin/shutdown.
	TokenSecret string
}

// DefaultAddr is the admin listen address used when none is configured.
const DefaultAddr = ":9990"

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.DeltaInterval <= 0 {
		c.DeltaInterval = time.Minute
	}
}
