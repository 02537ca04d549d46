package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type StorageBackend string

const (
	StorageBackendSQLite StorageBackend = "sqlite"
	StorageBackendFile   StorageBackend = "file"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Project  ProjectConfig  `toml:"project"`
	Render   RenderConfig   `toml:"render"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type StorageConfig struct {
	Backend     StorageBackend `toml:"backend"`
	SnapshotDir string         `toml:"snapshot_dir"`
}

// ProjectConfig names the project used when a command gets no --project.
type ProjectConfig struct {
	Default string `toml:"default"`
}

type RenderConfig struct {
	ShowMembers bool `toml:"show_members"`
	ShowValues  bool `toml:"show_values"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

// DevFileConfig controls the logfmt file sink written in dev mode. An empty
// Dir uses the app log dir.
type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func Default(dbPath, snapshotDir string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Storage: StorageConfig{
			Backend:     StorageBackendSQLite,
			SnapshotDir: snapshotDir,
		},
		Render: RenderConfig{
			ShowMembers: true,
			ShowValues:  false,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageBackendSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required")
		}
	case StorageBackendFile:
		if strings.TrimSpace(c.Storage.SnapshotDir) == "" {
			return errors.New("storage.snapshot_dir is required for the file backend")
		}
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}

	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	return nil
}

// normalize trims free-form values and lower-cases enums.
func (c *Config) normalize() {
	c.Database.Path = strings.TrimSpace(c.Database.Path)
	c.Storage.Backend = StorageBackend(strings.ToLower(strings.TrimSpace(string(c.Storage.Backend))))
	c.Storage.SnapshotDir = strings.TrimSpace(c.Storage.SnapshotDir)
	c.Project.Default = strings.TrimSpace(c.Project.Default)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.DevFile.Dir = strings.TrimSpace(c.Logging.DevFile.Dir)
}

// ParseStorageBackend validates a backend name given outside the config file.
func ParseStorageBackend(raw string) (StorageBackend, error) {
	backend := StorageBackend(strings.ToLower(strings.TrimSpace(raw)))
	switch backend {
	case StorageBackendSQLite, StorageBackendFile:
		return backend, nil
	default:
		return "", fmt.Errorf("invalid storage backend: %q", raw)
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a config file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
