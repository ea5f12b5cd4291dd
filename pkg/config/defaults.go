package config

import (
	"strings"
	"time"
)

// Default values shared by the built-in flags and ApplyDefaults.
const (
	DefaultAdminPort          = ":9990"
	DefaultAdminReadTimeout   = 10 * time.Second
	DefaultAdminWriteTimeout  = 10 * time.Second
	DefaultLogLevel           = "INFO"
	DefaultLogFormat          = "text"
	DefaultLogOutput          = "stderr"
	DefaultShutdownGrace      = 30 * time.Second
	DefaultStatsDeltaInterval = time.Minute
	DefaultTelemetryEndpoint  = "localhost:4317"
	DefaultTelemetrySample    = 1.0
	DefaultProfilingEndpoint  = "http://localhost:4040"
)

// DefaultProfileTypes are the Pyroscope profile types enabled by default.
var DefaultProfileTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}

// ApplyDefaults sets default values for any unspecified fields.
//
// Zero values ("", 0, nil) are replaced with defaults; explicit values are
// preserved. Booleans default to false and are left alone.
func ApplyDefaults(cfg *Settings) {
	applyAdminDefaults(&cfg.Admin)
	applyLogDefaults(&cfg.Log)
	applyShutdownDefaults(&cfg.Shutdown)
	applyStatsDefaults(&cfg.Stats)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyProfilingDefaults(&cfg.Profiling)
}

func applyAdminDefaults(cfg *AdminSettings) {
	if cfg.Port == "" {
		cfg.Port = DefaultAdminPort
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultAdminReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultAdminWriteTimeout
	}
}

// applyLogDefaults also normalizes the level to upper case.
func applyLogDefaults(cfg *LogSettings) {
	if cfg.Level == "" {
		cfg.Level = DefaultLogLevel
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = DefaultLogFormat
	}
	cfg.Format = strings.ToLower(cfg.Format)

	if cfg.Output == "" {
		cfg.Output = DefaultLogOutput
	}
}

func applyShutdownDefaults(cfg *ShutdownSettings) {
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultShutdownGrace
	}
}

func applyStatsDefaults(cfg *StatsSettings) {
	if cfg.DeltaInterval == 0 {
		cfg.DeltaInterval = DefaultStatsDeltaInterval
	}
}

func applyTelemetryDefaults(cfg *TelemetrySettings) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultTelemetryEndpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultTelemetrySample
	}
}

func applyProfilingDefaults(cfg *ProfilingSettings) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultProfilingEndpoint
	}
	if len(cfg.Types) == 0 {
		cfg.Types = append([]string(nil), DefaultProfileTypes...)
	}
}

// Default returns settings with every default applied. Telemetry is insecure
// by default since the usual target is a local collector.
func Default() *Settings {
	cfg := &Settings{}
	cfg.Telemetry.Insecure = true
	ApplyDefaults(cfg)
	return cfg
}
