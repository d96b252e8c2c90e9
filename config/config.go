// Package config loads mcpserve settings from defaults, an optional YAML or
// TOML file, and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/mcpserve/catalog"
)

const (
	projectConfigName = "mcpserve.yaml"
	homeConfigName    = "config.yaml"
	homeConfigDir     = ".mcpserve"
)

// Environment variables that override file settings.
const (
	EnvToolsDir      = "MCPSERVE_TOOLS_DIR"
	EnvStoreDriver   = "MCPSERVE_STORE_DRIVER"
	EnvStorePath     = "MCPSERVE_STORE_PATH"
	EnvLogLevel      = "MCPSERVE_LOG_LEVEL"
	EnvLogFormat     = "MCPSERVE_LOG_FORMAT"
	EnvWatchSchedule = "MCPSERVE_WATCH_SCHEDULE"
	EnvOTLPEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure  = "MCPSERVE_OTLP_INSECURE"
	EnvServiceName   = "OTEL_SERVICE_NAME"
)

const (
	defaultServiceName = "mcpserve"
	defaultSchedule    = "@every 1m"
	defaultLogLevel    = "info"
	defaultLogFormat   = "text"
)

// Config is the resolved mcpserve configuration.
type Config struct {
	ToolsDir  string          `yaml:"tools_dir" toml:"tools_dir"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Watch     WatchConfig     `yaml:"watch" toml:"watch"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

// StoreConfig selects the catalog store.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// WatchConfig controls periodic rescans.
type WatchConfig struct {
	Schedule string `yaml:"schedule" toml:"schedule"`
}

// TelemetryConfig controls trace export. An empty endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" toml:"service_name"`
	Insecure     bool   `yaml:"insecure" toml:"insecure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ToolsDir: ".",
		Store:    StoreConfig{Driver: catalog.DriverSQLite},
		Log:      LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
		Watch:    WatchConfig{Schedule: defaultSchedule},
		Telemetry: TelemetryConfig{
			ServiceName: defaultServiceName,
		},
	}
}

// Load resolves configuration. An empty path falls back to discovery; a
// missing discovered file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, found, err := DiscoverPath(path)
	if err != nil {
		return Config{}, err
	}
	if found {
		if err := decodeFile(resolved, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DiscoverPath resolves the config file with first-match semantics: the
// explicit path, then ./mcpserve.yaml, then ~/.mcpserve/config.yaml.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("config: resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("config: resolve user home: %w", err)
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	explicit := strings.TrimSpace(explicitPath)
	candidates := make([]string, 0, 2)
	if explicit != "" {
		candidates = append(candidates, filepath.Clean(explicit))
	} else {
		candidates = append(candidates,
			filepath.Join(cwd, projectConfigName),
			filepath.Join(homeDir, homeConfigDir, homeConfigName),
		)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) || err == nil {
			if explicit != "" {
				return "", false, fmt.Errorf("config: file %q not found: %w", candidate, os.ErrNotExist)
			}
			continue
		}
		return "", false, fmt.Errorf("config: checking path %q: %w", candidate, err)
	}
	return "", false, nil
}

func decodeFile(path string, cfg *Config) error {
	// #nosec G304 -- path comes from explicit flag or local discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: parse %q: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %q: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvToolsDir, &cfg.ToolsDir)
	set(EnvStoreDriver, &cfg.Store.Driver)
	set(EnvStorePath, &cfg.Store.Path)
	set(EnvLogLevel, &cfg.Log.Level)
	set(EnvLogFormat, &cfg.Log.Format)
	set(EnvWatchSchedule, &cfg.Watch.Schedule)
	set(EnvOTLPEndpoint, &cfg.Telemetry.OTLPEndpoint)
	set(EnvServiceName, &cfg.Telemetry.ServiceName)

	if v, ok := lookup(EnvOTLPInsecure); ok && strings.TrimSpace(v) != "" {
		insecure, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvOTLPInsecure, err)
		}
		cfg.Telemetry.Insecure = insecure
	}
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ToolsDir) == "" {
		errs = append(errs, errors.New("config: tools_dir is required"))
	}
	switch strings.ToLower(c.Store.Driver) {
	case catalog.DriverFile, catalog.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: store.driver %q must be %s or %s", c.Store.Driver, catalog.DriverFile, catalog.DriverSQLite))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format %q must be text or json", c.Log.Format))
	}
	if _, err := catalog.ParseSchedule(c.Watch.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("config: watch.schedule: %w", err))
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log.level %q: %w", level, err)
	}
	return l, nil
}
