package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 300, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, 10.0, cfg.Monitor.WarnThreshold)
	assert.True(t, cfg.Monitor.BalanceAlerts)
	assert.True(t, cfg.Monitor.SpikeAlerts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromClampsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"monitor": {"interval_seconds": -5, "warn_threshold": 0}
	}`), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Monitor.IntervalSeconds)
	assert.Equal(t, 10.0, cfg.Monitor.WarnThreshold)
}

func TestLoadFromMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o644))

	cfg, err := LoadFrom(path)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	cfg := DefaultConfig()
	cfg.Monitor.IntervalSeconds = 60
	cfg.Monitor.SpikeAlerts = false
	cfg.NotifyCommand = "notify-send"
	require.NoError(t, SaveTo(path, cfg))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestCredentialsRoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	require.NoError(t, SaveCredentialTo(path, "sk-or-secret"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	creds, err := LoadCredentialsFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-secret", creds.APIKey)

	require.NoError(t, DeleteCredentialFrom(path))
	creds, err = LoadCredentialsFrom(path)
	require.NoError(t, err)
	assert.Empty(t, creds.APIKey)
}

func TestDeleteCredentialMissingFileIsFine(t *testing.T) {
	require.NoError(t, DeleteCredentialFrom(filepath.Join(t.TempDir(), "credentials.json")))
}

func TestWatchFiresOnSettingsChange(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	require.NoError(t, watchDir(ctx, dir, func() { fired.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{}`), 0o644))

	require.Eventually(t, func() bool {
		return fired.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	require.NoError(t, watchDir(ctx, dir, func() { fired.Add(1) }))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	time.Sleep(500 * time.Millisecond)
	assert.Zero(t, fired.Load())
}
