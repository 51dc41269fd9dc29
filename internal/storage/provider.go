package storage

import (
	"fmt"

	"git.home.luguber.info/inful/txbridge/internal/config"
)

// NewProvider selects the backend named by the storage configuration.
func NewProvider(cfg config.StorageConfig) (Provider, error) {
	switch cfg.Backend {
	case config.StorageS3, "":
		return NewS3Provider(cfg)
	case config.StorageFS:
		return NewFSProvider(cfg.Root)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
