// Package config loads server settings from a YAML file and the environment.
//
// Keys mirror the built-in flag names: the flag "admin.port" is the YAML path
// admin.port and the environment variable <PREFIX>_ADMIN_PORT. The same source
// also answers lookups for application flags, so any registered flag can be
// set from the file or the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Settings is the typed view of every built-in server setting.
type Settings struct {
	// Admin HTTP interface
	Admin AdminSettings `mapstructure:"admin" yaml:"admin" json:"admin"`

	// Log output
	Log LogSettings `mapstructure:"log" yaml:"log" json:"log"`

	// Shutdown bounds
	Shutdown ShutdownSettings `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`

	// Statistics sampling and final snapshot export
	Stats StatsSettings `mapstructure:"stats" yaml:"stats" json:"stats"`

	// OpenTelemetry tracing
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry" json:"telemetry"`

	// Pyroscope continuous profiling
	Profiling ProfilingSettings `mapstructure:"profiling" yaml:"profiling" json:"profiling"`
}

// AdminSettings configures the admin HTTP server.
type AdminSettings struct {
	// Port is the listen address, e.g. ":9990" or "127.0.0.1:0".
	Port string `mapstructure:"port" validate:"required,listen_addr" yaml:"port" json:"port"`

	// ReadTimeout bounds reading a request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"gt=0" yaml:"read_timeout" json:"read_timeout"`

	// WriteTimeout bounds writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0" yaml:"write_timeout" json:"write_timeout"`

	// Pprof exposes /admin/debug/pprof.
	Pprof bool `mapstructure:"pprof" yaml:"pprof" json:"pprof"`

	// TokenSecret, when set, protects POST /admin/shutdown with an HS256 bearer token.
	TokenSecret string `mapstructure:"token_secret" validate:"omitempty,min=16" yaml:"token_secret,omitempty" json:"token_secret,omitempty" secret:"true"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level" json:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format" json:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output" json:"output"`
}

// ShutdownSettings bounds teardown.
type ShutdownSettings struct {
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gt=0" yaml:"grace_period" json:"grace_period"`
}

// StatsSettings configures stats sampling and export.
type StatsSettings struct {
	// DeltaInterval is how often counter deltas are sampled.
	DeltaInterval time.Duration `mapstructure:"delta_interval" validate:"gt=0" yaml:"delta_interval" json:"delta_interval"`

	// Export is where the final snapshot goes at exit:
	// file:///path.json, badger:///dir or s3://bucket/prefix.
	Export string `mapstructure:"export" validate:"omitempty,export_target" yaml:"export,omitempty" json:"export,omitempty"`

	// S3 configures the s3:// export target.
	S3 S3Settings `mapstructure:"s3" yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Settings configures an S3-compatible export target.
type S3Settings struct {
	Region          string `mapstructure:"region" yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty" secret:"true"`
}

// TelemetrySettings configures OpenTelemetry tracing.
type TelemetrySettings struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure" json:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate" json:"sample_rate"`
}

// ProfilingSettings configures Pyroscope continuous profiling.
type ProfilingSettings struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Endpoint string   `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint" json:"endpoint"`
	Types    []string `mapstructure:"types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"types" json:"types"`
}

// Source answers flag lookups from a config file and the environment.
// Environment variables win over the file.
type Source struct {
	v        *viper.Viper
	fileUsed string
}

// NewSource reads configPath (optional) and binds environment variables with
// the given prefix. A missing default config file is not an error; a missing
// explicit configPath is.
func NewSource(configPath, envPrefix, appName string) (*Source, error) {
	v := viper.New()
	setupViper(v, configPath, envPrefix, appName)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found && configPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	s := &Source{v: v}
	if found {
		s.fileUsed = v.ConfigFileUsed()
	}
	return s, nil
}

// ConfigFileUsed returns the path of the file read, or "".
func (s *Source) ConfigFileUsed() string { return s.fileUsed }

// Lookup returns the textual value of key, if the file or environment sets it.
// Lists are joined with commas.
func (s *Source) Lookup(key string) (string, bool) {
	if !s.v.IsSet(key) {
		return "", false
	}
	raw := s.v.Get(key)
	if _, isMap := raw.(map[string]any); isMap {
		return "", false
	}
	if list, ok := raw.([]any); ok {
		items, err := cast.ToStringSliceE(list)
		if err != nil {
			return "", false
		}
		return strings.Join(items, ","), true
	}
	str, err := cast.ToStringE(raw)
	if err != nil {
		return "", false
	}
	return str, true
}

// Settings decodes the source into Settings, applies defaults and validates.
func (s *Source) Settings() (*Settings, error) {
	var cfg Settings
	if err := s.v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Load reads configPath and returns validated settings.
func Load(configPath, envPrefix, appName string) (*Settings, error) {
	src, err := NewSource(configPath, envPrefix, appName)
	if err != nil {
		return nil, err
	}
	return src.Settings()
}

// SaveSettings writes cfg as YAML to path, creating parent directories.
func SaveSettings(cfg *Settings, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may hold the admin token secret and S3 credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath, envPrefix, appName string) {
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows; binding every settings
	// key lets Unmarshal see values that exist only in the environment.
	for _, key := range settingKeys(reflect.TypeOf(Settings{}), "") {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir(appName))
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// settingKeys lists the dotted mapstructure paths of every leaf field of t.
func settingKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := strings.Split(f.Tag.Get("mapstructure"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			keys = append(keys, settingKeys(f.Type, key)...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// durationDecodeHook accepts "30s" style strings and plain nanosecond numbers.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// ConfigDir returns $XDG_CONFIG_HOME/<app> or ~/.config/<app>.
func ConfigDir(appName string) string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", appName)
}

// DefaultConfigPath returns the default config file location for appName.
func DefaultConfigPath(appName string) string {
	return filepath.Join(ConfigDir(appName), "config.yaml")
}
