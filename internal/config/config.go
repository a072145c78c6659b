// Package config resolves runtime settings from defaults, an optional
// cadence.toml, CADENCE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/cadence/internal/keyring"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "CADENCE"
	fileName  = "cadence"
	fileType  = "toml"
)

// Keys
const (
	KeyDataDir         = "data_dir"
	KeyDB              = "db"
	KeyOffline         = "offline"
	KeySyncInterval    = "sync.interval"
	KeyDeadLetterAfter = "sync.dead_letter_after"
	KeyMergeWorkers    = "sync.merge_workers"
	KeyProbeInterval   = "sync.probe_interval"
	KeyRemoteBackend   = "remote.backend"
	KeyRemoteDSN       = "remote.dsn"
	KeyDashboardAddr   = "dashboard.addr"
	KeyLogDebug        = "log.debug"
	KeyLogVerbose      = "log.verbose"
)

// Remote backends
const (
	BackendAuto     = "auto"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

var validBackends = map[string]bool{
	BackendAuto: true, BackendPostgres: true, BackendMemory: true, BackendNone: true,
}

// ErrDSNInFile is returned when a config file carries the remote DSN, which
// may only come from the environment or the OS keyring.
var ErrDSNInFile = errors.New("remote.dsn must not be set in the config file; use CADENCE_REMOTE_DSN or `cadence remote set`")

type Config struct {
	DataDir   string
	DBPath    string
	Offline   bool
	Sync      SyncConfig
	Remote    RemoteConfig
	Dashboard DashboardConfig
	Log       LogConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type SyncConfig struct {
	Interval        time.Duration
	DeadLetterAfter int
	MergeWorkers    int
	ProbeInterval   time.Duration
}

type RemoteConfig struct {
	Backend string
	DSN     string
	// DSNSource names where the DSN came from: "env", "keyring" or "".
	DSNSource string
}

type DashboardConfig struct {
	Addr string
}

type LogConfig struct {
	Debug   bool
	Verbose bool
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":  KeyDataDir,
	"db":        KeyDB,
	"offline":   KeyOffline,
	"interval":  KeySyncInterval,
	"remote":    KeyRemoteBackend,
	"dashboard": KeyDashboardAddr,
	"debug":     KeyLogDebug,
	"verbose":   KeyLogVerbose,
}

// Loader owns one viper instance. It is not safe to Load concurrently.
type Loader struct {
	v *viper.Viper
	// KeyringDSN looks up the stored DSN when the environment has none.
	KeyringDSN func() (string, error)
	log        *log.Logger

	watchOnce sync.Once
}

func NewLoader(logger *log.Logger) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigType(fileType)

	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyOffline, false)
	v.SetDefault(KeySyncInterval, 30*time.Second)
	v.SetDefault(KeyDeadLetterAfter, 10)
	v.SetDefault(KeyMergeWorkers, 8)
	v.SetDefault(KeyProbeInterval, 15*time.Second)
	v.SetDefault(KeyRemoteBackend, BackendAuto)
	v.SetDefault(KeyDashboardAddr, "")
	v.SetDefault(KeyLogDebug, false)
	v.SetDefault(KeyLogVerbose, false)

	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Loader{v: v, KeyringDSN: keyring.GetDSN, log: logger}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadence"
	}
	return filepath.Join(home, ".cadence")
}

// BindFlags binds every known flag present in fs. Flags only override
// lower layers when the user actually set them.
func (l *Loader) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load resolves the configuration. configFile, when non-empty, must exist;
// otherwise cadence.toml is looked up in the data dir and is optional.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(fileName)
		l.v.AddConfigPath(l.v.GetString(KeyDataDir))
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if l.v.InConfig(KeyRemoteDSN) {
		return nil, ErrDSNInFile
	}

	cfg := &Config{
		DataDir: l.v.GetString(KeyDataDir),
		DBPath:  l.v.GetString(KeyDB),
		Offline: l.v.GetBool(KeyOffline),
		Sync: SyncConfig{
			Interval:        l.v.GetDuration(KeySyncInterval),
			DeadLetterAfter: l.v.GetInt(KeyDeadLetterAfter),
			MergeWorkers:    l.v.GetInt(KeyMergeWorkers),
			ProbeInterval:   l.v.GetDuration(KeyProbeInterval),
		},
		Remote:    RemoteConfig{Backend: strings.ToLower(l.v.GetString(KeyRemoteBackend))},
		Dashboard: DashboardConfig{Addr: l.v.GetString(KeyDashboardAddr)},
		Log: LogConfig{
			Debug:   l.v.GetBool(KeyLogDebug),
			Verbose: l.v.GetBool(KeyLogVerbose),
		},
		File: l.v.ConfigFileUsed(),
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "cadence.db")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Remote.DSN, cfg.Remote.DSNSource = l.resolveDSN()
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Sync.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeySyncInterval, c.Sync.Interval))
	}
	if c.Sync.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyProbeInterval, c.Sync.ProbeInterval))
	}
	if c.Sync.DeadLetterAfter < 0 {
		errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", KeyDeadLetterAfter, c.Sync.DeadLetterAfter))
	}
	if c.Sync.MergeWorkers < 1 {
		errs = append(errs, fmt.Errorf("%s must be >= 1, got %d", KeyMergeWorkers, c.Sync.MergeWorkers))
	}
	if !validBackends[c.Remote.Backend] {
		errs = append(errs, fmt.Errorf("%s: invalid value %q", KeyRemoteBackend, c.Remote.Backend))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// resolveDSN prefers CADENCE_REMOTE_DSN over the keyring. A missing or
// unreachable keyring yields no DSN.
func (l *Loader) resolveDSN() (dsn, source string) {
	if dsn := l.v.GetString(KeyRemoteDSN); dsn != "" {
		return dsn, "env"
	}
	if l.KeyringDSN == nil {
		return "", ""
	}
	dsn, err := l.KeyringDSN()
	switch {
	case err == nil:
		return dsn, "keyring"
	case errors.Is(err, keyring.ErrNotFound):
	default:
		l.log.Debug("keyring lookup failed", "err", err)
	}
	return "", ""
}

// WatchInterval calls fn with the new sync interval whenever the config file
// changes it. It does nothing when no config file was loaded.
func (l *Loader) WatchInterval(fn func(time.Duration)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.watchOnce.Do(func() {
		var mu sync.Mutex
		current := l.v.GetDuration(KeySyncInterval)
		l.v.OnConfigChange(func(e fsnotify.Event) {
			d := l.v.GetDuration(KeySyncInterval)
			mu.Lock()
			changed := d > 0 && d != current
			if changed {
				current = d
			}
			mu.Unlock()
			if d <= 0 {
				l.log.Warn("ignoring invalid sync interval from config", "file", e.Name, "interval", d)
				return
			}
			if changed {
				l.log.Info("sync interval changed", "interval", d)
				fn(d)
			}
		})
		l.v.WatchConfig()
	})
}
