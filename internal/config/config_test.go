package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Daemon.Port)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %q", cfg.Storage.Driver)
	}
	if cfg.IgnoreThreshold() != 999*time.Millisecond {
		t.Errorf("expected 999ms threshold, got %v", cfg.IgnoreThreshold())
	}
	if cfg.Geolocation.Source != SourceIP {
		t.Errorf("expected ip source, got %q", cfg.Geolocation.Source)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
daemon:
  port: 4000
storage:
  driver: json
  path: ~/reminders.json
geolocation:
  source: none
log:
  format: json
  file: ~/sundriven.log
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Port != 4000 {
		t.Errorf("expected port 4000, got %d", cfg.Daemon.Port)
	}
	if cfg.Daemon.Host != "127.0.0.1" {
		t.Errorf("unset keys should keep defaults, got host %q", cfg.Daemon.Host)
	}
	if cfg.Storage.Driver != DriverJSON {
		t.Errorf("expected json driver, got %q", cfg.Storage.Driver)
	}
	if strings.HasPrefix(cfg.Storage.Path, "~") {
		t.Errorf("expected expanded path, got %q", cfg.Storage.Path)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected json log format, got %q", cfg.Log.Format)
	}
	if cfg.Log.File == "" || strings.HasPrefix(cfg.Log.File, "~") {
		t.Errorf("expected expanded log file path, got %q", cfg.Log.File)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "daemon:\n  port: 4000\n")
	t.Setenv("SUNDRIVEN_DAEMON__PORT", "4100")
	t.Setenv("SUNDRIVEN_GEOLOCATION__IP__URL", "http://127.0.0.1:9/json")
	t.Setenv("SUNDRIVEN_LOCALE", "en-GB")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Port != 4100 {
		t.Errorf("expected env port 4100, got %d", cfg.Daemon.Port)
	}
	if cfg.Geolocation.IP.URL != "http://127.0.0.1:9/json" {
		t.Errorf("unexpected ip url %q", cfg.Geolocation.IP.URL)
	}
	if cfg.Locale != "en-GB" {
		t.Errorf("unexpected locale %q", cfg.Locale)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeConfig(t, "daemon:\n  port: 4200\n")
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Daemon.Port != 4200 {
		t.Errorf("expected port from %s, got %d", PathEnv, cfg.Daemon.Port)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "daemon: [unterminated\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Daemon.Port = 0 }},
		{"port too large", func(c *Config) { c.Daemon.Port = 70000 }},
		{"shutdown timeout", func(c *Config) { c.Daemon.ShutdownTimeoutSec = 0 }},
		{"driver", func(c *Config) { c.Storage.Driver = "redis" }},
		{"storage path", func(c *Config) { c.Storage.Path = "" }},
		{"threshold", func(c *Config) { c.Scheduler.IgnoreThresholdMs = -1 }},
		{"geo source", func(c *Config) { c.Geolocation.Source = "gps" }},
		{"ip url", func(c *Config) { c.Geolocation.IP.URL = "" }},
		{"mqtt geo broker", func(c *Config) {
			c.Geolocation.Source = SourceMQTT
			c.Geolocation.MQTT.Broker = ""
		}},
		{"mqtt notify", func(c *Config) {
			c.Notify.MQTT.Enabled = true
			c.Notify.MQTT.Broker = ""
		}},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestBaseURL(t *testing.T) {
	cfg := &Config{Daemon: DaemonConfig{Host: "0.0.0.0", Port: 3850}}
	if got := cfg.BaseURL(); got != "http://127.0.0.1:3850" {
		t.Errorf("unexpected base url %q", got)
	}
	if got := cfg.Addr(); got != "0.0.0.0:3850" {
		t.Errorf("unexpected addr %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("unexpected expansion %q", got)
	}
	if got := expandPath("/abs"); got != "/abs" {
		t.Errorf("absolute path changed: %q", got)
	}
}
