package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/cadence/internal/keyring"
	"github.com/alexanderramin/cadence/internal/logger"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Setenv("CADENCE_DATA_DIR", t.TempDir())
	l := NewLoader(logger.Discard())
	l.KeyringDSN = func() (string, error) { return "", keyring.ErrNotFound }
	return l
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "cadence.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	l := newTestLoader(t)
	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 10, cfg.Sync.DeadLetterAfter)
	assert.Equal(t, 8, cfg.Sync.MergeWorkers)
	assert.Equal(t, 15*time.Second, cfg.Sync.ProbeInterval)
	assert.Equal(t, BackendAuto, cfg.Remote.Backend)
	assert.Equal(t, filepath.Join(cfg.DataDir, "cadence.db"), cfg.DBPath)
	assert.Empty(t, cfg.Remote.DSN)
	assert.Empty(t, cfg.File)
	assert.False(t, cfg.Offline)
}

func TestLoad_ConfigFileInDataDir(t *testing.T) {
	l := newTestLoader(t)
	dir := os.Getenv("CADENCE_DATA_DIR")
	writeConfig(t, dir, `
db = "/tmp/elsewhere.db"

[sync]
interval = "45s"
dead_letter_after = 3

[dashboard]
addr = "127.0.0.1:7777"
`)

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Sync.DeadLetterAfter)
	assert.Equal(t, "/tmp/elsewhere.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:7777", cfg.Dashboard.Addr)
	assert.Equal(t, filepath.Join(dir, "cadence.toml"), cfg.File)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	l := newTestLoader(t)
	writeConfig(t, os.Getenv("CADENCE_DATA_DIR"), "[sync]\ninterval = \"45s\"\n")
	t.Setenv("CADENCE_SYNC_INTERVAL", "2m")
	t.Setenv("CADENCE_REMOTE_BACKEND", "memory")

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, BackendMemory, cfg.Remote.Backend)
}

func TestLoad_FlagsBeatEnv(t *testing.T) {
	l := newTestLoader(t)
	t.Setenv("CADENCE_SYNC_INTERVAL", "2m")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Duration("interval", 0, "")
	fs.Bool("offline", false, "")
	fs.String("db", "", "")
	require.NoError(t, l.BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--interval=5s", "--offline"}))

	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Sync.Interval)
	assert.True(t, cfg.Offline)
	assert.Equal(t, filepath.Join(cfg.DataDir, "cadence.db"), cfg.DBPath, "unset flags do not override")
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_RejectsDSNInFile(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), "[remote]\ndsn = \"postgres://db/x\"\n")

	_, err := l.Load(path)
	assert.True(t, errors.Is(err, ErrDSNInFile))
}

func TestLoad_InvalidValues(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), `
[sync]
interval = "-1s"
merge_workers = 0

[remote]
backend = "sqlite"
`)
	_, err := l.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeySyncInterval)
	assert.Contains(t, err.Error(), KeyMergeWorkers)
	assert.Contains(t, err.Error(), `"sqlite"`)
}

func TestLoad_DSNResolution(t *testing.T) {
	t.Run("env first", func(t *testing.T) {
		l := newTestLoader(t)
		l.KeyringDSN = func() (string, error) { return "postgres://keyring/db", nil }
		t.Setenv("CADENCE_REMOTE_DSN", "postgres://env/db")

		cfg, err := l.Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://env/db", cfg.Remote.DSN)
		assert.Equal(t, "env", cfg.Remote.DSNSource)
	})
	t.Run("keyring fallback", func(t *testing.T) {
		l := newTestLoader(t)
		l.KeyringDSN = func() (string, error) { return "postgres://keyring/db", nil }

		cfg, err := l.Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://keyring/db", cfg.Remote.DSN)
		assert.Equal(t, "keyring", cfg.Remote.DSNSource)
	})
	t.Run("keyring unavailable", func(t *testing.T) {
		l := newTestLoader(t)
		l.KeyringDSN = func() (string, error) { return "", keyring.ErrKeyringUnavailable }

		cfg, err := l.Load("")
		require.NoError(t, err)
		assert.Empty(t, cfg.Remote.DSN)
	})
}

func TestWatchInterval_PicksUpFileChange(t *testing.T) {
	l := newTestLoader(t)
	path := writeConfig(t, t.TempDir(), "[sync]\ninterval = \"30s\"\n")
	_, err := l.Load(path)
	require.NoError(t, err)

	got := make(chan time.Duration, 4)
	l.WatchInterval(func(d time.Duration) { got <- d })

	require.NoError(t, os.WriteFile(path, []byte("[sync]\ninterval = \"5s\"\n"), 0o600))

	select {
	case d := <-got:
		assert.Equal(t, 5*time.Second, d)
	case <-time.After(5 * time.Second):
		t.Fatal("interval change not observed")
	}
}

func TestWatchInterval_NoFileIsNoop(t *testing.T) {
	l := newTestLoader(t)
	_, err := l.Load("")
	require.NoError(t, err)
	l.WatchInterval(func(time.Duration) { t.Fatal("unexpected callback") })
}
