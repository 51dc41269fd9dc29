package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/fetch"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/metrics"
	"git.home.luguber.info/inful/txbridge/internal/notify"
	"git.home.luguber.info/inful/txbridge/internal/pipeline"
	"git.home.luguber.info/inful/txbridge/internal/preprocess"
	"git.home.luguber.info/inful/txbridge/internal/storage"
	"git.home.luguber.info/inful/txbridge/internal/workspace"
)

// historySize bounds the in-memory job history served on /events.
const historySize = 200

// cacheDirName is the fetch cache directory under the workspace base. It must
// not carry the workspace prefix or the janitor would sweep it.
const cacheDirName = "fetch-cache"

// Components is the assembled object graph shared by the daemon and the
// one-shot CLI commands.
type Components struct {
	Stores     storage.Provider
	Fetcher    *fetch.Fetcher
	Dispatcher *preprocess.Dispatcher
	Workspaces *workspace.Manager
	Registry   *prom.Registry
	Recorder   metrics.Recorder
	Events     eventstore.Store
	Journal    *eventstore.Journal
	Notifier   notify.Notifier
	Runner     *pipeline.Runner
}

// Assemble builds every collaborator from cfg. Optional subsystems (event
// journal, notifications) are only created when enabled.
func Assemble(ctx context.Context, cfg *config.Config) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	c := &Components{
		Dispatcher: preprocess.NewDispatcher(cfg.Dispatch.ResourceAliases),
		Workspaces: workspace.NewManager(cfg.Workspace.BaseDir),
		Registry:   prom.NewRegistry(),
		Notifier:   notify.Noop{},
	}
	c.Recorder = metrics.NewPrometheusRecorder(c.Registry)

	stores, err := storage.NewProvider(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	c.Stores = stores

	fetcher, err := fetch.New(cfg.Fetch,
		fetch.WithCacheDir(filepath.Join(c.Workspaces.BaseDir(), cacheDirName)),
		fetch.WithRetryHook(c.Recorder.IncFetchRetry),
	)
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	c.Fetcher = fetcher

	if cfg.Events.Enabled {
		if err := c.openJournal(ctx, cfg.Events.Path); err != nil {
			return nil, err
		}
	}

	if cfg.Notify.Enabled {
		n, err := notify.NewNATSNotifier(ctx, cfg.Notify)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("notifier: %w", err)
		}
		c.Notifier = n
	}

	c.Runner = pipeline.NewRunner(cfg.TX, c.Stores, c.Fetcher, c.Dispatcher, c.Workspaces,
		pipeline.WithRecorder(c.Recorder),
		pipeline.WithJournal(c.Journal),
		pipeline.WithNotifier(c.Notifier),
	)
	return c, nil
}

func (c *Components) openJournal(ctx context.Context, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create event store directory: %w", err)
		}
	}
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("event store: %w", err)
	}
	projection := eventstore.NewJobHistoryProjection(store, historySize)
	if err := projection.Rebuild(ctx); err != nil {
		slog.Warn("Failed to rebuild job history", logfields.Error(err))
	}
	c.Events = store
	c.Journal = eventstore.NewJournal(store, projection)
	slog.Info("Event journal opened", logfields.Path(path), logfields.Count(len(projection.GetHistory())))
	return nil
}

// Close releases the notifier connection and the event store.
func (c *Components) Close() error {
	var errs []error
	if c.Notifier != nil {
		if err := c.Notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notifier: %w", err))
		}
	}
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event store: %w", err))
		}
	}
	return errors.Join(errs...)
}
