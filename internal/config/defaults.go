package config

import (
	"path/filepath"

	"github.com/knadh/koanf/providers/confmap"
)

const DefaultPort = 3850

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"daemon": map[string]interface{}{
			"host":                 "127.0.0.1",
			"port":                 DefaultPort,
			"shutdown_timeout_sec": 10,
		},
		"rpc": map[string]interface{}{
			"secret": "",
		},
		"storage": map[string]interface{}{
			"driver": DriverSQLite,
			"path":   filepath.Join(Dir(), "sundriven.db"),
		},
		"scheduler": map[string]interface{}{
			"ignore_threshold_ms": 999,
		},
		"locale": "en-US",
		"geolocation": map[string]interface{}{
			"source": SourceIP,
			"ip": map[string]interface{}{
				"url":               "https://ipapi.co/json/",
				"timeout_sec":       10,
				"cache_ttl_sec":     900,
				"poll_interval_sec": 1800,
			},
			"mqtt": map[string]interface{}{
				"broker":    "",
				"topic":     "owntracks/+/+",
				"client_id": "sundriven-geo",
			},
		},
		"notify": map[string]interface{}{
			"mqtt": map[string]interface{}{
				"enabled": false,
				"broker":  "",
				"topic":   "sundriven/notifications",
			},
		},
		"log": map[string]interface{}{
			"format": "text",
			"debug":  false,
			"file":   "",
		},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}
