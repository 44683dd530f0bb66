package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ORGCHAT"

// MemoryStorage keeps sessions in memory only.
const MemoryStorage = ":memory:"

// Config defines client configuration.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	DevBackend DevBackendConfig `yaml:"devbackend"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type DevBackendConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// env holds the ORGCHAT_* overrides. Unset variables stay zero.
type env struct {
	ConfigPath     string        `split_words:"true"`
	BackendURL     string        `split_words:"true"`
	BackendTimeout time.Duration `split_words:"true"`
	StoragePath    string        `split_words:"true"`
	LogLevel       string        `split_words:"true"`
	LogPath        string        `split_words:"true"`
	DevbackendHost string        `split_words:"true"`
	DevbackendPort int           `split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Storage: StorageConfig{
			Path: defaultStoragePath(),
		},
		Log: LogConfig{
			Level: "info",
		},
		DevBackend: DevBackendConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order. path names the YAML file; when it is
// empty ORGCHAT_CONFIG_PATH is used.
func Load(path string) (Config, error) {
	var overrides env
	if err := envconfig.Process(EnvPrefix, &overrides); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = overrides.ConfigPath
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrides.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("invalid config: backend.url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid config: backend.timeout must be positive")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("invalid config: storage.path is required")
	}
	if c.DevBackend.Port < 0 || c.DevBackend.Port > 65535 {
		return fmt.Errorf("invalid config: devbackend.port %d out of range", c.DevBackend.Port)
	}
	return nil
}

// Addr returns the dev backend listen address.
func (c DevBackendConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (e env) apply(cfg *Config) {
	if e.BackendURL != "" {
		cfg.Backend.URL = e.BackendURL
	}
	if e.BackendTimeout != 0 {
		cfg.Backend.Timeout = e.BackendTimeout
	}
	if e.StoragePath != "" {
		cfg.Storage.Path = e.StoragePath
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
	if e.LogPath != "" {
		cfg.Log.Path = e.LogPath
	}
	if e.DevbackendHost != "" {
		cfg.DevBackend.Host = e.DevbackendHost
	}
	if e.DevbackendPort != 0 {
		cfg.DevBackend.Port = e.DevbackendPort
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "orgchat.db"
	}
	return filepath.Join(dir, "orgchat", "sessions.db")
}
