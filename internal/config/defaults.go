package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Default values applied when the corresponding setting is empty.
const (
	DefaultSourceURLBase      = "https://s3-us-west-2.amazonaws.com"
	DefaultCommitPrefixLength = 10
	DefaultFetchCacheSize     = 64
	DefaultWebhookAddr        = ":8080"
	DefaultAdminAddr          = ":8081"
	DefaultMaxConnections     = 256
	DefaultNotifySubject      = "txbridge.lifecycle"
	DefaultEventsFile         = "events.db"
)

// DefaultApplier applies default values to one configuration section.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type txDefaultApplier struct{}

func (txDefaultApplier) Domain() string { return "tx" }

func (txDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.TX.SourceURLBase == "" {
		cfg.TX.SourceURLBase = DefaultSourceURLBase
	}
	cfg.TX.SourceURLBase = strings.TrimRight(cfg.TX.SourceURLBase, "/")
	cfg.TX.APIURL = strings.TrimRight(cfg.TX.APIURL, "/")
	cfg.TX.GogsURL = strings.TrimRight(cfg.TX.GogsURL, "/")
	if cfg.TX.CommitPrefixLength <= 0 {
		cfg.TX.CommitPrefixLength = DefaultCommitPrefixLength
	}
	return nil
}

type storageDefaultApplier struct{}

func (storageDefaultApplier) Domain() string { return "storage" }

func (storageDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Storage.Backend == "" {
		if cfg.Storage.Endpoint == "" && cfg.Storage.Root != "" {
			cfg.Storage.Backend = StorageFS
		} else {
			cfg.Storage.Backend = StorageS3
		}
	}
	backend, err := storageBackends.Parse(string(cfg.Storage.Backend))
	if err != nil {
		return err
	}
	cfg.Storage.Backend = backend
	switch cfg.Storage.Backend {
	case StorageS3:
		if cfg.Storage.Endpoint == "" {
			cfg.Storage.Endpoint = "s3.amazonaws.com"
			cfg.Storage.UseSSL = true
		}
	case StorageFS:
		if cfg.Storage.Root == "" {
			cfg.Storage.Root = filepath.Join(".txbridge", "objects")
		}
	}
	return nil
}

type fetchDefaultApplier struct{}

func (fetchDefaultApplier) Domain() string { return "fetch" }

func (fetchDefaultApplier) ApplyDefaults(cfg *Config) error {
	mode, err := fetchModes.ParseOr(string(cfg.Fetch.Mode), FetchArchive)
	if err != nil {
		return err
	}
	cfg.Fetch.Mode = mode
	backoff, err := retryBackoffs.ParseOr(string(cfg.Fetch.RetryBackoff), RetryBackoffLinear)
	if err != nil {
		return err
	}
	cfg.Fetch.RetryBackoff = backoff
	if cfg.Fetch.RetryInitial == "" {
		cfg.Fetch.RetryInitial = "1s"
	}
	if cfg.Fetch.RetryMax == "" {
		cfg.Fetch.RetryMax = "10s"
	}
	if cfg.Fetch.MaxRetries < 0 {
		cfg.Fetch.MaxRetries = 0
	}
	if cfg.Fetch.CacheSize <= 0 {
		cfg.Fetch.CacheSize = DefaultFetchCacheSize
	}
	return nil
}

type serverDefaultApplier struct{}

func (serverDefaultApplier) Domain() string { return "server" }

func (serverDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Server.WebhookAddr == "" {
		cfg.Server.WebhookAddr = DefaultWebhookAddr
	}
	if cfg.Server.AdminAddr == "" {
		cfg.Server.AdminAddr = DefaultAdminAddr
	}
	if cfg.Server.MaxConnections <= 0 {
		cfg.Server.MaxConnections = DefaultMaxConnections
	}
	return nil
}

type workspaceDefaultApplier struct{}

func (workspaceDefaultApplier) Domain() string { return "workspace" }

func (workspaceDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Workspace.MaxAge == "" {
		cfg.Workspace.MaxAge = "6h"
	}
	if cfg.Workspace.SweepInterval == "" {
		cfg.Workspace.SweepInterval = "30m"
	}
	return nil
}

type eventsDefaultApplier struct{}

func (eventsDefaultApplier) Domain() string { return "events" }

func (eventsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events.Enabled && cfg.Events.Path == "" {
		cfg.Events.Path = filepath.Join(".txbridge", DefaultEventsFile)
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	return nil
}

type loggingDefaultApplier struct{}

func (loggingDefaultApplier) Domain() string { return "logging" }

func (loggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	txDefaultApplier{},
	storageDefaultApplier{},
	fetchDefaultApplier{},
	serverDefaultApplier{},
	workspaceDefaultApplier{},
	eventsDefaultApplier{},
	loggingDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("%s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}
