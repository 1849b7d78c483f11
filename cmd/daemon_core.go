package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/brettz9/sundriven/internal/config"
	"github.com/brettz9/sundriven/internal/daemon"
	"github.com/brettz9/sundriven/internal/geo"
	"github.com/brettz9/sundriven/internal/i18n"
	"github.com/brettz9/sundriven/internal/notify"
	"github.com/brettz9/sundriven/internal/reminder"
	"github.com/brettz9/sundriven/internal/scheduler"
	"github.com/brettz9/sundriven/internal/server"
	"github.com/brettz9/sundriven/internal/solar"
	"github.com/brettz9/sundriven/pkg/logger"
)

// eventBuffer is the scheduler subscription depth for websocket pushes.
const eventBuffer = 64

// DaemonComponents holds all initialized daemon components.
type DaemonComponents struct {
	Store     reminder.Store
	Provider  *geo.Provider
	Scheduler *scheduler.Scheduler
	RPC       *server.RPCServer
	Web       *server.WebServer

	// closers release the store and the MQTT connections, last first
	closers []func()
	logger  logger.Logger
}

// Close releases all daemon component resources in reverse order of initialization.
func (c *DaemonComponents) Close() {
	c.logger.Info("Shutting down daemon...")
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	c.logger.Info("Daemon stopped")
}

// Services returns the background loops the runner drives alongside the
// web server: the scheduler loop, the initial reload of the stored
// reminders, and the relay of scheduler events to websocket clients.
func (c *DaemonComponents) Services() []daemon.Service {
	return []daemon.Service{
		c.Scheduler.Run,
		c.Scheduler.Reload,
		func(ctx context.Context) error {
			events, unsubscribe := c.Scheduler.Subscribe(eventBuffer)
			defer unsubscribe()
			c.Web.Notifier().ForwardEvents(ctx, events)
			return nil
		},
	}
}

// newLogger builds the daemon logger from the log section of cfg. Records
// go to w and, when log.file is set, are appended to that file too.
func newLogger(cfg *config.Config, w io.Writer) (logger.Logger, error) {
	console := logger.NewSlogLogger(slog.New(logHandler(cfg, w)), nil)
	if cfg.Log.File == "" {
		return console, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	file := logger.NewSlogLogger(slog.New(logHandler(cfg, f)), f)
	return logger.NewMultiLogger(console, file), nil
}

func logHandler(cfg *config.Config, w io.Writer) slog.Handler {
	level := slog.LevelInfo
	if cfg.Log.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// openStore opens the configured reminder store. The parent directory is
// created when missing.
func openStore(cfg *config.Config) (reminder.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	switch cfg.Storage.Driver {
	case config.DriverJSON:
		return reminder.NewFileStore(afero.NewOsFs(), cfg.Storage.Path), nil
	default:
		return reminder.NewSQLiteStore(cfg.Storage.Path)
	}
}

// openSource starts the configured live location source. The returned
// function releases it.
func openSource(cfg *config.Config, log logger.Logger) (geo.Source, func(), error) {
	g := cfg.Geolocation
	switch g.Source {
	case config.SourceIP:
		src := geo.NewIPSource(geo.IPOptions{
			URL:          g.IP.URL,
			Timeout:      time.Duration(g.IP.TimeoutSec) * time.Second,
			CacheTTL:     time.Duration(g.IP.CacheTTLSec) * time.Second,
			PollInterval: time.Duration(g.IP.PollIntervalSec) * time.Second,
			Logger:       log,
		})
		return src, func() {}, nil
	case config.SourceMQTT:
		src := geo.NewMQTTSource(geo.MQTTOptions{
			Broker:   g.MQTT.Broker,
			Topic:    g.MQTT.Topic,
			ClientID: g.MQTT.ClientID,
			Logger:   log,
		})
		if err := src.Start(); err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return geo.NoSource{}, func() {}, nil
	}
}

// initDaemonComponents wires storage, location, notifiers, the scheduler
// and the RPC endpoints from cfg.
//
// On error, any partially initialized components are cleaned up before returning.
var initDaemonComponents = func(cfg *config.Config, secret string, log logger.Logger) (*DaemonComponents, error) {
	c := &DaemonComponents{logger: log}

	store, err := openStore(cfg)
	if err != nil {
		log.Error("Reminder store initialization failed: %v", err)
		return nil, err
	}
	c.Store = store
	c.closers = append(c.closers, func() {
		if err := store.Close(); err != nil {
			log.Warning("closing store: %v", err)
		}
	})

	src, closeSrc, err := openSource(cfg, log)
	if err != nil {
		log.Error("Location source initialization failed: %v", err)
		c.Close()
		return nil, err
	}
	c.closers = append(c.closers, closeSrc)
	c.Provider = geo.NewProvider(src, log)

	pushes := server.NewRPCNotifier(log)
	push := server.NewPushNotifier(pushes)
	logged := notify.NewLogNotifier(log)
	fanout := &notify.Multi{
		Notifiers: []notify.Notifier{logged, push},
		Vibrators: []notify.Vibrator{logged, push},
		Alerters:  []notify.Alerter{logged, push},
	}
	if cfg.Notify.MQTT.Enabled {
		mn, closeMQTT, err := notify.DialMQTT(notify.MQTTOptions{
			Broker: cfg.Notify.MQTT.Broker,
			Topic:  cfg.Notify.MQTT.Topic,
		})
		if err != nil {
			log.Error("MQTT notifier initialization failed: %v", err)
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, closeMQTT)
		fanout.Notifiers = append(fanout.Notifiers, mn)
		fanout.Vibrators = append(fanout.Vibrators, mn)
	}

	resolver := solar.NewResolver(nil, nil)
	c.Scheduler = scheduler.New(scheduler.Options{
		Store:           store,
		Provider:        c.Provider,
		Resolver:        resolver,
		Notifier:        fanout,
		Vibrator:        fanout,
		Alerter:         fanout,
		Translator:      i18n.New(cfg.LocaleOrDefault()),
		Logger:          log,
		IgnoreThreshold: cfg.IgnoreThreshold(),
	})

	c.RPC = server.NewRPCServer(&server.RPCConfig{
		Secret:    secret,
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
		Store:     store,
		Scheduler: c.Scheduler,
		Provider:  c.Provider,
		Resolver:  resolver,
		Logger:    log,
	})
	c.Web = server.NewWebServer(log, c.RPC, pushes)
	return c, nil
}
