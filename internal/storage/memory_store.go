package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// MemoryObject is a stored value with the headers it was written with.
type MemoryObject struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Get    int
	Put    int
	List   int
	Delete int
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string]MemoryObject
	calls   MemoryCalls

	// FailPut, when set, is returned by every write.
	FailPut error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]MemoryObject)}
}

func (m *MemoryStore) Bucket() string { return m.bucket }

func (m *MemoryStore) GetJSON(_ context.Context, key string, v any) (bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return false, err
	}
	m.mu.Lock()
	m.calls.Get++
	obj, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(obj.Data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) PutBytes(_ context.Context, data []byte, key, contentType string, cacheControlSeconds int) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++
	if m.FailPut != nil {
		return m.FailPut
	}
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.objects[key] = MemoryObject{Data: stored, ContentType: contentType, CacheControl: CacheControl(cacheControlSeconds)}
	return nil
}

func (m *MemoryStore) PutFile(ctx context.Context, localPath, key string, cacheControlSeconds int) error {
	data, err := os.ReadFile(localPath) // #nosec G304 -- test helper
	if err != nil {
		return fmt.Errorf("read %s: %w", localPath, err)
	}
	return m.PutBytes(ctx, data, key, ContentTypeFor(key), cacheControlSeconds)
}

func (m *MemoryStore) ListByPrefix(_ context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimLeft(prefix, "/")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.List++
	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	delete(m.objects, key)
	return nil
}

// Object returns the stored object for key.
func (m *MemoryStore) Object(key string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys returns every stored key, sorted.
func (m *MemoryStore) Keys() []string {
	keys, _ := m.ListByPrefix(context.Background(), "")
	return keys
}

// Calls returns a snapshot of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// MemoryProvider hands out one MemoryStore per bucket.
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

// NewMemoryProvider creates an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: make(map[string]*MemoryStore)}
}

// Open returns the store for bucket, creating it on first use.
func (p *MemoryProvider) Open(bucket string) (Store, error) {
	return p.Store(bucket), nil
}

// Store returns the concrete store for bucket so tests can inspect it.
func (p *MemoryProvider) Store(bucket string) *MemoryStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[bucket]
	if !ok {
		s = NewMemoryStore(bucket)
		p.stores[bucket] = s
	}
	return s
}
