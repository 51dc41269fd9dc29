// Package storage is the object store gateway used for pre-conversion
// archives, converted output and the build_log/project records.
//
// A Store is bound to one bucket. Keys are slash separated and never start
// with a slash.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Store is the key/value contract every backend implements.
type Store interface {
	// Bucket returns the bucket this store writes to.
	Bucket() string

	// GetJSON decodes the object at key into v. found is false when the key
	// does not exist; a missing key is not an error.
	GetJSON(ctx context.Context, key string, v any) (found bool, err error)

	// PutBytes writes data to key.
	PutBytes(ctx context.Context, data []byte, key, contentType string, cacheControlSeconds int) error

	// PutFile uploads a local file to key, deriving the content type from its extension.
	PutFile(ctx context.Context, localPath, key string, cacheControlSeconds int) error

	// ListByPrefix returns every key under prefix, sorted.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Provider opens stores by bucket name.
type Provider interface {
	Open(bucket string) (Store, error)
}

// PutJSON encodes v as indented JSON and writes it to key.
func PutJSON(ctx context.Context, s Store, key string, v any, cacheControlSeconds int) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.PutBytes(ctx, data, key, "application/json", cacheControlSeconds)
}

// DeletePrefix removes every key under prefix and returns how many were removed.
func DeletePrefix(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.ListByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return i, fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return len(keys), nil
}

// ContentTypeFor returns the MIME type for a key, defaulting to octet-stream.
func ContentTypeFor(key string) string {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".usfm":
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// CacheControl renders a max-age header value.
func CacheControl(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("max-age=%d", seconds)
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	clean := path.Clean(key)
	if clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return clean, nil
}
