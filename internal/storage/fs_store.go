package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FSProvider lays buckets out as directories below a root:
//
//	<root>/
//	  <bucket>/
//	    u/owner/repo/project.json
type FSProvider struct {
	root string
}

// NewFSProvider creates the root directory if needed.
func NewFSProvider(root string) (*FSProvider, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", root, err)
	}
	return &FSProvider{root: root}, nil
}

// Open returns the store for bucket.
func (p *FSProvider) Open(bucket string) (Store, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return nil, fmt.Errorf("invalid bucket name %q", bucket)
	}
	return NewFSStore(filepath.Join(p.root, bucket), bucket)
}

// FSStore is a filesystem-backed Store used for local runs and tests.
// Object metadata is not persisted.
type FSStore struct {
	basePath string
	bucket   string
	mu       sync.RWMutex
}

// NewFSStore creates a store rooted at basePath.
func NewFSStore(basePath, bucket string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", basePath, err)
	}
	return &FSStore{basePath: basePath, bucket: bucket}, nil
}

func (s *FSStore) Bucket() string { return s.bucket }

func (s *FSStore) objectPath(key string) (string, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

func (s *FSStore) GetJSON(_ context.Context, key string, v any) (bool, error) {
	p, err := s.objectPath(key)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(p) // #nosec G304 -- path confined to basePath by normalizeKey
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *FSStore) PutBytes(_ context.Context, data []byte, key, _ string, _ int) error {
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(p, data)
}

func (s *FSStore) PutFile(ctx context.Context, localPath, key string, cacheControlSeconds int) error {
	f, err := os.Open(localPath) // #nosec G304 -- caller supplied workspace path
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return s.PutBytes(ctx, data, key, ContentTypeFor(key), cacheControlSeconds)
}

func (s *FSStore) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimLeft(prefix, "/")
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *FSStore) Delete(_ context.Context, key string) error {
	p, err := s.objectPath(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func writeFileAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
