// Package daemon runs the long-lived txbridge service: the webhook and admin
// listeners, the workspace janitor and configuration hot reload.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/metrics"
	"git.home.luguber.info/inful/txbridge/internal/server/handlers"
	"git.home.luguber.info/inful/txbridge/internal/server/httpserver"
	"git.home.luguber.info/inful/txbridge/internal/version"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// shutdownTimeout bounds how long in-flight invocations may drain on stop.
const shutdownTimeout = 30 * time.Second

// Daemon represents the main daemon service
type Daemon struct {
	config         atomic.Pointer[config.Config]
	configFilePath string
	status         atomic.Value // Status
	startTime      time.Time
	mu             sync.Mutex
	logLevel       *slog.LevelVar

	components    *Components
	httpServer    *httpserver.Server
	scheduler     *Scheduler
	configWatcher *ConfigWatcher
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithConfigFile enables hot reload of the file at path.
func WithConfigFile(path string) Option {
	return func(d *Daemon) { d.configFilePath = path }
}

// WithLogLevel lets configuration reloads adjust the process log level.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(d *Daemon) { d.logLevel = lv }
}

// New creates a daemon around already assembled components.
func New(cfg *config.Config, components *Components, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if components == nil || components.Runner == nil {
		return nil, errors.New("components are required")
	}
	d := &Daemon{components: components}
	d.config.Store(cfg)
	d.status.Store(StatusStopped)
	for _, opt := range opts {
		opt(d)
	}

	d.httpServer = httpserver.New(cfg.Server, components.Runner, httpserver.Options{
		MetricsHandler: metrics.HTTPHandler(components.Registry),
		Events:         handlers.NewEventHandlers(components.Journal),
	})

	scheduler, err := NewScheduler()
	if err != nil {
		return nil, err
	}
	d.scheduler = scheduler

	if d.configFilePath != "" {
		watcher, err := NewConfigWatcher(d.configFilePath, d)
		if err != nil {
			return nil, err
		}
		d.configWatcher = watcher
	}
	return d, nil
}

// Run starts every component and blocks until ctx is cancelled, then stops.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return d.Stop(stopCtx)
}

// Start starts the listeners, the janitor and the config watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.GetStatus() != StatusStopped {
		return fmt.Errorf("daemon is not in stopped state: %s", d.GetStatus())
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	cfg := d.GetConfig()

	slog.Info("Starting txbridge daemon", slog.String("version", version.Version))

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	ws := d.components.Workspaces
	maxAge := cfg.Workspace.MaxAgeDuration()
	sweepWorkspaces(ws, maxAge)
	if _, err := d.scheduler.ScheduleWorkspaceSweep(ws, cfg.Workspace.SweepIntervalDuration(), maxAge); err != nil {
		slog.Error("Failed to schedule workspace sweep", logfields.Error(err))
	}
	d.scheduler.Start(ctx)

	if d.configWatcher != nil {
		if err := d.configWatcher.Start(ctx); err != nil {
			slog.Error("Failed to start config watcher", logfields.Error(err))
		}
	}

	d.status.Store(StatusRunning)
	slog.Info("txbridge daemon started",
		slog.String("webhook_addr", cfg.Server.WebhookAddr),
		slog.String("admin_addr", cfg.Server.AdminAddr),
		slog.String("workspace_dir", ws.BaseDir()),
		slog.Bool("events", d.components.Journal != nil),
		slog.Bool("notify", cfg.Notify.Enabled))
	return nil
}

// Stop gracefully shuts down the daemon
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	currentStatus := d.GetStatus()
	if currentStatus == StatusStopped || currentStatus == StatusStopping {
		return nil
	}
	d.status.Store(StatusStopping)
	slog.Info("Stopping txbridge daemon")

	var errs []error
	if d.configWatcher != nil {
		if err := d.configWatcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("config watcher: %w", err))
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if err := d.httpServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if err := d.components.Close(); err != nil {
		errs = append(errs, err)
	}

	d.status.Store(StatusStopped)
	slog.Info("txbridge daemon stopped", slog.Duration("uptime", time.Since(d.startTime)))
	return errors.Join(errs...)
}

// GetStatus returns the current daemon status
func (d *Daemon) GetStatus() Status {
	status, ok := d.status.Load().(Status)
	if !ok {
		return StatusError
	}
	return status
}

// GetConfig returns the configuration currently in effect.
func (d *Daemon) GetConfig() *config.Config {
	return d.config.Load()
}

// HTTPServer exposes the listeners, mainly for bound addresses in tests.
func (d *Daemon) HTTPServer() *httpserver.Server {
	return d.httpServer
}

// ReloadConfig applies the parts of newConfig that can change at runtime:
// the resource alias table and the log level. Changes to anything else are
// reported and take effect on the next restart.
func (d *Daemon) ReloadConfig(_ context.Context, newConfig *config.Config) error {
	if newConfig == nil {
		return errors.New("configuration is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	old := d.GetConfig()
	if !maps.Equal(old.Dispatch.ResourceAliases, newConfig.Dispatch.ResourceAliases) {
		d.components.Dispatcher.SetAliases(newConfig.Dispatch.ResourceAliases)
		slog.Info("Resource aliases updated", logfields.Count(len(newConfig.Dispatch.ResourceAliases)))
	}
	if d.logLevel != nil && old.Logging.Level != newConfig.Logging.Level {
		d.logLevel.Set(newConfig.Logging.SlogLevel())
		slog.Info("Log level updated", slog.String("level", newConfig.Logging.Level))
	}
	for _, section := range restartRequired(old, newConfig) {
		slog.Warn("Configuration change requires restart", slog.String("section", section))
	}

	d.config.Store(newConfig)
	slog.Info("Configuration reloaded successfully")
	return nil
}

func restartRequired(old, next *config.Config) []string {
	var sections []string
	check := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			sections = append(sections, name)
		}
	}
	check("tx", old.TX, next.TX)
	check("storage", old.Storage, next.Storage)
	check("fetch", old.Fetch, next.Fetch)
	check("server", old.Server, next.Server)
	check("workspace", old.Workspace, next.Workspace)
	check("events", old.Events, next.Events)
	check("notify", old.Notify, next.Notify)
	check("logging.format", old.Logging.Format, next.Logging.Format)
	return sections
}
