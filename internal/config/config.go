// Package config loads and persists the settings and credential files under
// the user config directory, and watches them for live changes.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// MonitorConfig is the polling and alerting surface consumed by the engine.
type MonitorConfig struct {
	Enabled         bool    `json:"enabled"`
	IntervalSeconds int     `json:"interval_seconds"`
	WarnThreshold   float64 `json:"warn_threshold"`
	BalanceAlerts   bool    `json:"balance_alerts"`
	SpikeAlerts     bool    `json:"spike_alerts"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type Config struct {
	Monitor MonitorConfig `json:"monitor"`
	Log     LogConfig     `json:"log"`

	// NotifyCommand, when set, is executed with (title, body, id) for every
	// alert instead of logging it.
	NotifyCommand string `json:"notify_command,omitempty"`

	// BaseURL overrides the metering API endpoint (tests, proxies).
	BaseURL string `json:"base_url,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Monitor: MonitorConfig{
			Enabled:         true,
			IntervalSeconds: 300,
			WarnThreshold:   10,
			BalanceAlerts:   true,
			SpikeAlerts:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "orwatch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "orwatch")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// LedgerPath is where the alert dedup ledger database lives.
func LedgerPath() string {
	return filepath.Join(ConfigDir(), "alerts.db")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 300
	}
	if cfg.Monitor.WarnThreshold <= 0 {
		cfg.Monitor.WarnThreshold = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
