package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sapctl-keeper.yaml")
	content := `
log:
  level: debug
sapcontrol:
  username: sapadm
  fallback: false
  timeout: 90s
  poll_interval: 500ms
history:
  path: /tmp/history.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "sapadm", cfg.SAPControl.Username)
	assert.False(t, cfg.SAPControl.Fallback)
	assert.Equal(t, 90*time.Second, cfg.SAPControl.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.SAPControl.PollInterval)
	assert.Equal(t, DefaultSAPControlPath, cfg.SAPControl.SAPControlPath)
	assert.Equal(t, DefaultServerAddress, cfg.Server.Address)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sapctl-keeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sapcontrol:\n  password: fromfile\n"), 0644))
	t.Setenv("SAPCTL_SAPCONTROL_PASSWORD", "fromenv")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.SAPControl.Password)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadConfigSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sapctl-keeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sapcontrol:\n  username: [sapadm\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
}

func TestCollectConfigDefaults(t *testing.T) {
	cfg := collectConfig(&AppConfig{})
	assert.Equal(t, time.Second, cfg.SAPControl.PollInterval)
	assert.Equal(t, 300*time.Second, cfg.SAPControl.Timeout)
	assert.Equal(t, DefaultSAPControlPath, cfg.SAPControl.SAPControlPath)
}
