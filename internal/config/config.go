package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	appName = "quotabar"

	defaultRefreshIntervalSeconds = 60
	defaultTimeoutSeconds         = 30
	defaultListenAddr             = "127.0.0.1:9477"
	defaultHistoryRetention       = 500
)

// ProviderSettings are per-provider overrides. Zero values mean "use the
// provider's own default".
type ProviderSettings struct {
	Enabled   *bool  `json:"enabled,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	ConfigDir string `json:"config_dir,omitempty"`
}

func (p ProviderSettings) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

type Config struct {
	RefreshIntervalSeconds int                         `json:"refresh_interval_seconds"`
	TimeoutSeconds         int                         `json:"timeout_seconds"`
	ListenAddr             string                      `json:"listen_addr"`
	HistoryPath            string                      `json:"history_path,omitempty"`
	HistoryRetention       int                         `json:"history_retention"`
	Debug                  bool                        `json:"debug,omitempty"`
	Providers              map[string]ProviderSettings `json:"providers,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		RefreshIntervalSeconds: defaultRefreshIntervalSeconds,
		TimeoutSeconds:         defaultTimeoutSeconds,
		ListenAddr:             defaultListenAddr,
		HistoryRetention:       defaultHistoryRetention,
	}
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) Provider(id string) ProviderSettings {
	return c.Providers[id]
}

// HistoryFile is the SQLite history path, defaulting into ConfigDir.
func (c Config) HistoryFile() string {
	if p := strings.TrimSpace(c.HistoryPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "history.db")
}

// ConfigDir honours QUOTABAR_CONFIG_DIR, then the platform config location.
func ConfigDir() string {
	if dir := strings.TrimSpace(os.Getenv("QUOTABAR_CONFIG_DIR")); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
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

	if cfg.RefreshIntervalSeconds <= 0 {
		cfg.RefreshIntervalSeconds = defaultRefreshIntervalSeconds
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaultTimeoutSeconds
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = defaultHistoryRetention
	}

	return cfg, nil
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

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

// SetProviderEnabled toggles one provider in the config file (read-modify-write).
func SetProviderEnabled(path, providerID string, enabled bool) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderSettings)
	}
	settings := cfg.Providers[providerID]
	settings.Enabled = &enabled
	cfg.Providers[providerID] = settings
	return SaveTo(path, cfg)
}
