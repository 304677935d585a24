// Package config resolves taskflow client settings from the environment,
// ~/.config/taskflow/config.json and built-in defaults, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultAPIURL is used when no API URL is configured.
	DefaultAPIURL = "http://localhost:5000/api"

	DefaultTimeout = 30 * time.Second

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TASKFLOW_"

	configFile = "config.json"
)

// Token store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON writes the duration as a string such as "30s".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText parses a duration string; used by env parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config holds client settings.
type Config struct {
	APIURL     string   `json:"api_url,omitempty" env:"API_URL"`
	Timeout    Duration `json:"timeout,omitempty" env:"TIMEOUT"`
	TokenStore string   `json:"token_store,omitempty" env:"TOKEN_STORE"`
	LogLevel   string   `json:"log_level,omitempty" env:"LOG_LEVEL"`
	LogFormat  string   `json:"log_format,omitempty" env:"LOG_FORMAT"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIURL:     DefaultAPIURL,
		Timeout:    Duration(DefaultTimeout),
		TokenStore: StoreFile,
		LogLevel:   "warn",
		LogFormat:  "text",
	}
}

// Dir returns ~/.config/taskflow, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "taskflow")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Path returns the location of config.json.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadFile reads config.json only. A missing file yields an empty Config.
func LoadFile() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Load resolves the effective configuration: env > config.json > defaults.
func Load() (*Config, error) {
	cfg := Defaults()

	file, err := LoadFile()
	if err != nil {
		return nil, err
	}
	cfg.overlay(file)

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg to config.json.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.TokenStore {
	case StoreFile, StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("invalid token_store %q (use file, sqlite or memory)", c.TokenStore)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// overlay copies every non-zero field of o onto c.
func (c *Config) overlay(o *Config) {
	if o == nil {
		return
	}
	if o.APIURL != "" {
		c.APIURL = o.APIURL
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if o.TokenStore != "" {
		c.TokenStore = o.TokenStore
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		c.LogFormat = o.LogFormat
	}
}

// Keys returns the settable config keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(*Config) string
	set func(*Config, string) error
}

var accessors = map[string]accessor{
	"api_url": {
		get: func(c *Config) string { return c.APIURL },
		set: func(c *Config, v string) error { c.APIURL = strings.TrimRight(v, "/"); return nil },
	},
	"timeout": {
		get: func(c *Config) string {
			if c.Timeout == 0 {
				return ""
			}
			return c.Timeout.String()
		},
		set: func(c *Config, v string) error { return c.Timeout.UnmarshalText([]byte(v)) },
	},
	"token_store": {
		get: func(c *Config) string { return c.TokenStore },
		set: func(c *Config, v string) error { c.TokenStore = v; return nil },
	},
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) error { c.LogLevel = v; return nil },
	},
	"log_format": {
		get: func(c *Config) string { return c.LogFormat },
		set: func(c *Config, v string) error { c.LogFormat = v; return nil },
	},
}

// Get returns the value of key from c.
func (c *Config) Get(key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return a.get(c), nil
}

// Set assigns key on c.
func (c *Config) Set(key, value string) error {
	a, ok := accessors[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return a.set(c, value)
}

// SetInFile assigns key in config.json, rejecting values that would make the
// effective configuration invalid.
func SetInFile(key, value string) error {
	file, err := LoadFile()
	if err != nil {
		return err
	}
	if err := file.Set(key, value); err != nil {
		return err
	}
	merged := Defaults()
	merged.overlay(file)
	if err := merged.Validate(); err != nil {
		return err
	}
	return Save(file)
}
