package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/srvkit/pkg/config"
)

func TestPathDefaultsToConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Cleanup(func() { configPath = "" })

	assert.Equal(t, filepath.Join(home, "srvd", "config.yaml"), path())

	configPath = "/etc/srvd.yaml"
	assert.Equal(t, "/etc/srvd.yaml", path())
}

func TestInitWritesLoadableDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "srvd.yaml")
	t.Cleanup(func() { configPath, initForce = "", false })
	configPath, initForce = target, true

	require.NoError(t, runInit(initCmd, nil))

	cfg, err := config.Load(target, envPrefix, appName)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultAdminPort, cfg.Admin.Port)
	assert.Equal(t, config.DefaultShutdownGrace, cfg.Shutdown.GracePeriod)
}

func TestRedactMasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Admin.TokenSecret = "0123456789abcdef"
	cfg.Stats.S3.SecretAccessKey = "s3cr3t"

	redact(cfg)

	assert.Equal(t, redacted, cfg.Admin.TokenSecret)
	assert.Equal(t, redacted, cfg.Stats.S3.SecretAccessKey)
	assert.Empty(t, cfg.Stats.S3.AccessKeyID)
}
