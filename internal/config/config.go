// Package config loads the daemon and CLI configuration from defaults, an
// optional YAML file and SUNDRIVEN_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/brettz9/sundriven/internal/i18n"
)

const (
	// EnvPrefix prefixes every environment override. A double underscore
	// separates nesting levels: SUNDRIVEN_DAEMON__PORT sets daemon.port.
	EnvPrefix = "SUNDRIVEN_"
	// PathEnv overrides the config file location.
	PathEnv = "SUNDRIVEN_CONFIG"

	DriverSQLite = "sqlite"
	DriverJSON   = "json"

	SourceIP   = "ip"
	SourceMQTT = "mqtt"
	SourceNone = "none"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Daemon      DaemonConfig      `koanf:"daemon"`
	RPC         RPCConfig         `koanf:"rpc"`
	Storage     StorageConfig     `koanf:"storage"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Locale      string            `koanf:"locale"`
	Geolocation GeolocationConfig `koanf:"geolocation"`
	Notify      NotifyConfig      `koanf:"notify"`
	Log         LogConfig         `koanf:"log"`
}

type DaemonConfig struct {
	Host               string `koanf:"host"`
	Port               int    `koanf:"port"`
	ShutdownTimeoutSec int    `koanf:"shutdown_timeout_sec"`
}

type RPCConfig struct {
	// Secret, when empty, is read from the OS keyring.
	Secret string `koanf:"secret"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type SchedulerConfig struct {
	IgnoreThresholdMs int `koanf:"ignore_threshold_ms"`
}

type GeolocationConfig struct {
	Source string   `koanf:"source"`
	IP     IPConfig `koanf:"ip"`
	MQTT   MQTTGeo  `koanf:"mqtt"`
}

type IPConfig struct {
	URL             string `koanf:"url"`
	TimeoutSec      int    `koanf:"timeout_sec"`
	CacheTTLSec     int    `koanf:"cache_ttl_sec"`
	PollIntervalSec int    `koanf:"poll_interval_sec"`
}

type MQTTGeo struct {
	Broker   string `koanf:"broker"`
	Topic    string `koanf:"topic"`
	ClientID string `koanf:"client_id"`
}

type NotifyConfig struct {
	MQTT MQTTNotify `koanf:"mqtt"`
}

type MQTTNotify struct {
	Enabled bool   `koanf:"enabled"`
	Broker  string `koanf:"broker"`
	Topic   string `koanf:"topic"`
}

type LogConfig struct {
	Format string `koanf:"format"`
	Debug  bool   `koanf:"debug"`
	// File, when set, receives a copy of every record in addition to stderr.
	File string `koanf:"file"`
}

// Load layers defaults, the YAML file at configPath (skipped when missing)
// and the environment. An empty configPath selects PathEnv or DefaultPath.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath == "" {
		configPath = os.Getenv(PathEnv)
	}
	if configPath == "" {
		configPath = DefaultPath()
	}
	configPath = expandPath(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Storage.Path = expandPath(cfg.Storage.Path)
	cfg.Log.File = expandPath(cfg.Log.File)
	return &cfg, nil
}

// envKey maps SUNDRIVEN_GEOLOCATION__IP__URL to geolocation.ip.url. The
// config file path variable is not a config key.
func envKey(s string) string {
	if s == PathEnv {
		return ""
	}
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: daemon.port %d out of range", ErrInvalid, c.Daemon.Port)
	}
	if c.Daemon.ShutdownTimeoutSec <= 0 {
		return fmt.Errorf("%w: daemon.shutdown_timeout_sec must be positive", ErrInvalid)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverJSON:
	default:
		return fmt.Errorf("%w: unknown storage.driver %q (supported: %s, %s)", ErrInvalid, c.Storage.Driver, DriverSQLite, DriverJSON)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path is required", ErrInvalid)
	}
	if c.Scheduler.IgnoreThresholdMs < 0 {
		return fmt.Errorf("%w: scheduler.ignore_threshold_ms must not be negative", ErrInvalid)
	}
	switch c.Geolocation.Source {
	case SourceIP:
		if c.Geolocation.IP.URL == "" {
			return fmt.Errorf("%w: geolocation.ip.url is required", ErrInvalid)
		}
	case SourceMQTT:
		if c.Geolocation.MQTT.Broker == "" || c.Geolocation.MQTT.Topic == "" {
			return fmt.Errorf("%w: geolocation.mqtt needs broker and topic", ErrInvalid)
		}
	case SourceNone:
	default:
		return fmt.Errorf("%w: unknown geolocation.source %q", ErrInvalid, c.Geolocation.Source)
	}
	if c.Notify.MQTT.Enabled && (c.Notify.MQTT.Broker == "" || c.Notify.MQTT.Topic == "") {
		return fmt.Errorf("%w: notify.mqtt needs broker and topic", ErrInvalid)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json", ErrInvalid)
	}
	return nil
}

// Addr is the daemon's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Daemon.Host, c.Daemon.Port)
}

// BaseURL is the daemon's HTTP root as seen by local clients.
func (c *Config) BaseURL() string {
	host := c.Daemon.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Daemon.Port)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Daemon.ShutdownTimeoutSec) * time.Second
}

func (c *Config) IgnoreThreshold() time.Duration {
	return time.Duration(c.Scheduler.IgnoreThresholdMs) * time.Millisecond
}

// LocaleOrDefault returns the configured locale or i18n.DefaultLocale.
func (c *Config) LocaleOrDefault() string {
	if c.Locale == "" {
		return i18n.DefaultLocale
	}
	return c.Locale
}

// Dir is the per-user configuration directory.
func Dir() string {
	if d, err := os.UserConfigDir(); err == nil {
		return filepath.Join(d, "sundriven")
	}
	return expandPath("~/.sundriven")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
