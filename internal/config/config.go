package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application settings.
type Config struct {
	Keys     KeysConfig    `mapstructure:"keys"`
	Debounce time.Duration `mapstructure:"debounce"`
	Anki     AnkiConfig    `mapstructure:"anki"`
	Window   WindowConfig  `mapstructure:"window"`
	LogLevel string        `mapstructure:"log_level"`
}

// KeysConfig names the key combination bound to each action.
type KeysConfig struct {
	Good        string `mapstructure:"good"`
	Again       string `mapstructure:"again"`
	AlwaysOnTop string `mapstructure:"always_on_top"`
}

// AnkiConfig holds the AnkiConnect endpoint settings.
type AnkiConfig struct {
	URL          string        `mapstructure:"url"`
	APIKey       string        `mapstructure:"api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// WindowConfig tells the window manager how to find the host window.
type WindowConfig struct {
	Match string `mapstructure:"match"`
}

// Load reads configuration from file and env, falling back to
// defaults. Env overrides use the ANKIKEYS_ prefix, e.g.
// ANKIKEYS_ANKI_URL or ANKIKEYS_KEYS_GOOD.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("keys.good", "ctrl+z")
	v.SetDefault("keys.again", "ctrl+x")
	v.SetDefault("keys.always_on_top", "ctrl+o")
	v.SetDefault("debounce", "500ms")
	v.SetDefault("anki.url", "http://127.0.0.1:8765")
	v.SetDefault("anki.api_key", "")
	v.SetDefault("anki.timeout", "5s")
	v.SetDefault("anki.poll_interval", "1s")
	v.SetDefault("window.match", "anki")
	v.SetDefault("log_level", "info")

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("ANKIKEYS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// the file is optional, defaults and env carry a fresh install
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Keys.Good == "" || c.Keys.Again == "" || c.Keys.AlwaysOnTop == "" {
		return fmt.Errorf("every action needs a key combination")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.Anki.Timeout < 0 {
		return fmt.Errorf("anki.timeout must not be negative, got %s", c.Anki.Timeout)
	}
	if c.Anki.PollInterval < 0 {
		return fmt.Errorf("anki.poll_interval must not be negative, got %s", c.Anki.PollInterval)
	}
	return nil
}

// Save writes the config to disk, creating the directory if needed.
// The tray uses this to seed a default file for editing.
func (c *Config) Save() error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("keys.good", c.Keys.Good)
	v.Set("keys.again", c.Keys.Again)
	v.Set("keys.always_on_top", c.Keys.AlwaysOnTop)
	v.Set("debounce", c.Debounce.String())
	v.Set("anki.url", c.Anki.URL)
	v.Set("anki.api_key", c.Anki.APIKey)
	v.Set("anki.timeout", c.Anki.Timeout.String())
	v.Set("anki.poll_interval", c.Anki.PollInterval.String())
	v.Set("window.match", c.Window.Match)
	v.Set("log_level", c.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Path returns the config file location, honoring ANKIKEYS_CONFIG.
func Path() string {
	if p := os.Getenv("ANKIKEYS_CONFIG"); p != "" {
		return p
	}

	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "ankikeys", "config.toml")
}
