package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
admin:
  port: ":7777"
`)

	cfg, err := Load(path, "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Log.Format)
	}
	if cfg.Admin.Port != ":7777" {
		t.Errorf("Expected admin port :7777, got %q", cfg.Admin.Port)
	}
	if cfg.Shutdown.GracePeriod != 30*time.Second {
		t.Errorf("Expected default grace period 30s, got %v", cfg.Shutdown.GracePeriod)
	}
	if len(cfg.Profiling.Types) != 4 {
		t.Errorf("Expected 4 default profile types, got %v", cfg.Profiling.Types)
	}
}

func TestLoad_DurationsAndLists(t *testing.T) {
	path := writeConfig(t, `
shutdown:
  grace_period: 5s
stats:
  delta_interval: 10s
  export: "file:///tmp/final.json"
profiling:
  types: [cpu, goroutines]
`)

	cfg, err := Load(path, "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Shutdown.GracePeriod != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.Shutdown.GracePeriod)
	}
	if cfg.Stats.DeltaInterval != 10*time.Second {
		t.Errorf("Expected 10s, got %v", cfg.Stats.DeltaInterval)
	}
	if strings.Join(cfg.Profiling.Types, ",") != "cpu,goroutines" {
		t.Errorf("Unexpected profile types %v", cfg.Profiling.Types)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
admin:
  port: ":7777"
`)
	t.Setenv("SRVDTEST_ADMIN_PORT", ":8888")
	t.Setenv("SRVDTEST_SHUTDOWN_GRACE_PERIOD", "2s")

	cfg, err := Load(path, "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Admin.Port != ":8888" {
		t.Errorf("Expected env to win with :8888, got %q", cfg.Admin.Port)
	}
	if cfg.Shutdown.GracePeriod != 2*time.Second {
		t.Errorf("Expected env-only grace period 2s, got %v", cfg.Shutdown.GracePeriod)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "SRVDTEST", "srvd")
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestNewSource_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	src, err := NewSource("", "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if src.ConfigFileUsed() != "" {
		t.Errorf("Expected no file used, got %q", src.ConfigFileUsed())
	}
}

func TestSource_Lookup(t *testing.T) {
	path := writeConfig(t, `
foo: from-file
admin:
  port: ":7000"
profiling:
  types: [cpu, alloc_space]
`)
	t.Setenv("SRVDTEST_LOG_LEVEL", "WARN")

	src, err := NewSource(path, "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"foo", "from-file", true},
		{"admin.port", ":7000", true},
		{"log.level", "WARN", true},
		{"profiling.types", "cpu,alloc_space", true},
		{"admin", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := src.Lookup(tt.key)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Admin.Port = ":9191"
	cfg.Shutdown.GracePeriod = 12 * time.Second

	if err := SaveSettings(cfg, path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path, "SRVDTEST", "srvd")
	if err != nil {
		t.Fatalf("Failed to reload: %v", err)
	}
	if loaded.Admin.Port != ":9191" || loaded.Shutdown.GracePeriod != 12*time.Second {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
	if !loaded.Telemetry.Insecure {
		t.Error("Expected telemetry.insecure to survive the round trip")
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Default settings should validate: %v", err)
	}

	cfg := Default()
	cfg.Admin.Port = "nope"
	cfg.Log.Level = "LOUD"
	cfg.Telemetry.SampleRate = 2
	cfg.Profiling.Types = []string{"cpu", "bogus"}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"admin.port", "log.level", "telemetry.sample_rate", "profiling.types[1]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}

	cfg = Default()
	cfg.Admin.Port = "127.0.0.1:0"
	if err := Validate(cfg); err != nil {
		t.Errorf("Port 0 should be valid: %v", err)
	}
}

func TestValidate_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Admin.TokenSecret = "hunter2-secret"
	cfg.Log.Level = "LOUD"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `admin.token_secret: failed "min=16"`)
	assert.NotContains(t, err.Error(), "hunter2-secret")
	assert.Contains(t, err.Error(), "(value LOUD)", "non-secret values are still reported")

	assert.True(t, secretFields()["Stats.S3.SecretAccessKey"])
	assert.False(t, secretFields()["Stats.S3.AccessKeyID"])
}

func TestValidate_ExportTarget(t *testing.T) {
	tests := []struct {
		target string
		valid  bool
	}{
		{"file:///var/lib/srvd/final.json", true},
		{"badger:///var/lib/srvd/stats", true},
		{"badger://stats", true},
		{"s3://bucket/prefix", true},
		{"s3:///prefix", false},
		{"ftp://host/x", false},
		{"file://", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			cfg := Default()
			cfg.Stats.Export = tt.target
			err := Validate(cfg)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to be valid: %v", tt.target, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tt.target)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema("srvd")
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Schema is not JSON: %v", err)
	}
	if doc["title"] != "srvd" {
		t.Errorf("Unexpected title %v", doc["title"])
	}
	props, _ := doc["properties"].(map[string]any)
	for _, key := range []string{"admin", "log", "shutdown", "stats", "telemetry", "profiling"} {
		if _, ok := props[key]; !ok {
			t.Errorf("Schema missing property %q", key)
		}
	}
}

func TestDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "srvd", "config.yaml")
	if got := DefaultConfigPath("srvd"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestSettingKeys(t *testing.T) {
	keys := strings.Join(settingKeys(reflect.TypeOf(Settings{}), ""), " ")
	for _, want := range []string{"admin.port", "stats.s3.region", "profiling.types", "shutdown.grace_period"} {
		if !strings.Contains(keys, want) {
			t.Errorf("Expected key %q in %s", want, keys)
		}
	}
}
