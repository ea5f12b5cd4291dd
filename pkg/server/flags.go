package server

import (
	"time"

	"github.com/marmos91/srvkit/pkg/config"
	"github.com/marmos91/srvkit/pkg/flags"
)

// Names of the built-in flags. Each one doubles as a config file key and,
// upper-cased with the server prefix, as an environment variable.
const (
	FlagConfig             = "config"
	FlagAdminPort          = "admin.port"
	FlagAdminReadTimeout   = "admin.read_timeout"
	FlagAdminWriteTimeout  = "admin.write_timeout"
	FlagAdminPprof         = "admin.pprof"
	FlagAdminTokenSecret   = "admin.token_secret"
	FlagLogLevel           = "log.level"
	FlagLogFormat          = "log.format"
	FlagLogOutput          = "log.output"
	FlagShutdownGrace      = "shutdown.grace_period"
	FlagStatsDeltaInterval = "stats.delta_interval"
	FlagStatsExport        = "stats.export"
	FlagS3Region           = "stats.s3.region"
	FlagS3Endpoint         = "stats.s3.endpoint"
	FlagS3AccessKeyID      = "stats.s3.access_key_id"
	FlagS3SecretAccessKey  = "stats.s3.secret_access_key"
	FlagTelemetryEnabled   = "telemetry.enabled"
	FlagTelemetryEndpoint  = "telemetry.endpoint"
	FlagTelemetryInsecure  = "telemetry.insecure"
	FlagTelemetrySample    = "telemetry.sample_rate"
	FlagProfilingEnabled   = "profiling.enabled"
	FlagProfilingEndpoint  = "profiling.endpoint"
	FlagProfilingTypes     = "profiling.types"
)

type builtinFlags struct {
	config *flags.Flag[string]

	adminPort         *flags.Flag[string]
	adminReadTimeout  *flags.Flag[time.Duration]
	adminWriteTimeout *flags.Flag[time.Duration]
	adminPprof        *flags.Flag[bool]
	adminTokenSecret  *flags.Flag[string]

	logLevel  *flags.Flag[string]
	logFormat *flags.Flag[string]
	logOutput *flags.Flag[string]

	shutdownGrace *flags.Flag[time.Duration]

	statsDeltaInterval *flags.Flag[time.Duration]
	statsExport        *flags.Flag[string]
	s3Region           *flags.Flag[string]
	s3Endpoint         *flags.Flag[string]
	s3AccessKeyID      *flags.Flag[string]
	s3SecretAccessKey  *flags.Flag[string]

	telemetryEnabled  *flags.Flag[bool]
	telemetryEndpoint *flags.Flag[string]
	telemetryInsecure *flags.Flag[bool]
	telemetrySample   *flags.Flag[float64]

	profilingEnabled  *flags.Flag[bool]
	profilingEndpoint *flags.Flag[string]
	profilingTypes    *flags.Flag[[]string]
}

func registerBuiltinFlags(r *flags.Registry) *builtinFlags {
	return &builtinFlags{
		config: r.String(FlagConfig, "", "Path to a YAML config file"),

		adminPort:         r.Addr(FlagAdminPort, config.DefaultAdminPort, "Admin HTTP listen address"),
		adminReadTimeout:  r.Duration(FlagAdminReadTimeout, config.DefaultAdminReadTimeout, "Admin HTTP read timeout"),
		adminWriteTimeout: r.Duration(FlagAdminWriteTimeout, config.DefaultAdminWriteTimeout, "Admin HTTP write timeout"),
		adminPprof:        r.Bool(FlagAdminPprof, false, "Serve pprof under /admin/debug/pprof"),
		adminTokenSecret:  r.Secret(FlagAdminTokenSecret, "", "HS256 secret protecting POST /admin/shutdown (min 16 chars)"),

		logLevel:  r.String(FlagLogLevel, config.DefaultLogLevel, "Log level: DEBUG, INFO, WARN or ERROR"),
		logFormat: r.String(FlagLogFormat, config.DefaultLogFormat, "Log format: text or json"),
		logOutput: r.String(FlagLogOutput, config.DefaultLogOutput, "Log output: stdout, stderr or a file path"),

		shutdownGrace: r.Duration(FlagShutdownGrace, config.DefaultShutdownGrace, "Time allowed for teardown before a forced exit"),

		statsDeltaInterval: r.Duration(FlagStatsDeltaInterval, config.DefaultStatsDeltaInterval, "Interval between counter delta samples"),
		statsExport:        r.String(FlagStatsExport, "", "Final snapshot target: file:///path.json, badger:///dir or s3://bucket/prefix"),
		s3Region:           r.String(FlagS3Region, "", "Region of the s3:// export target"),
		s3Endpoint:         r.String(FlagS3Endpoint, "", "Custom endpoint of the s3:// export target (MinIO, localstack)"),
		s3AccessKeyID:      r.String(FlagS3AccessKeyID, "", "Static access key for the s3:// export target"),
		s3SecretAccessKey:  r.Secret(FlagS3SecretAccessKey, "", "Static secret key for the s3:// export target"),

		telemetryEnabled:  r.Bool(FlagTelemetryEnabled, false, "Export lifecycle traces over OTLP"),
		telemetryEndpoint: r.String(FlagTelemetryEndpoint, config.DefaultTelemetryEndpoint, "OTLP gRPC collector endpoint"),
		telemetryInsecure: r.Bool(FlagTelemetryInsecure, true, "Connect to the collector without TLS"),
		telemetrySample:   r.Float64(FlagTelemetrySample, config.DefaultTelemetrySample, "Trace sampling rate between 0 and 1"),

		profilingEnabled:  r.Bool(FlagProfilingEnabled, false, "Push continuous profiles to Pyroscope"),
		profilingEndpoint: r.String(FlagProfilingEndpoint, config.DefaultProfilingEndpoint, "Pyroscope server URL"),
		profilingTypes:    r.StringSlice(FlagProfilingTypes, config.DefaultProfileTypes, "Profile types to collect"),
	}
}

// settings builds the typed view of the built-in flags.
func (f *builtinFlags) settings() *config.Settings {
	cfg := &config.Settings{
		Admin: config.AdminSettings{
			Port:         f.adminPort.Get(),
			ReadTimeout:  f.adminReadTimeout.Get(),
			WriteTimeout: f.adminWriteTimeout.Get(),
			Pprof:        f.adminPprof.Get(),
			TokenSecret:  f.adminTokenSecret.Get(),
		},
		Log: config.LogSettings{
			Level:  f.logLevel.Get(),
			Format: f.logFormat.Get(),
			Output: f.logOutput.Get(),
		},
		Shutdown: config.ShutdownSettings{
			GracePeriod: f.shutdownGrace.Get(),
		},
		Stats: config.StatsSettings{
			DeltaInterval: f.statsDeltaInterval.Get(),
			Export:        f.statsExport.Get(),
			S3: config.S3Settings{
				Region:          f.s3Region.Get(),
				Endpoint:        f.s3Endpoint.Get(),
				AccessKeyID:     f.s3AccessKeyID.Get(),
				SecretAccessKey: f.s3SecretAccessKey.Get(),
			},
		},
		Telemetry: config.TelemetrySettings{
			Enabled:    f.telemetryEnabled.Get(),
			Endpoint:   f.telemetryEndpoint.Get(),
			Insecure:   f.telemetryInsecure.Get(),
			SampleRate: f.telemetrySample.Get(),
		},
		Profiling: config.ProfilingSettings{
			Enabled:  f.profilingEnabled.Get(),
			Endpoint: f.profilingEndpoint.Get(),
			Types:    f.profilingTypes.Get(),
		},
	}
	return cfg
}
