package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/config"
)

type record struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// exerciseStore runs the shared contract against a backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var got record
	found, err := s.GetJSON(ctx, "u/owner/repo/project.json", &got)
	require.NoError(t, err)
	assert.False(t, found, "missing key must not be an error")

	require.NoError(t, PutJSON(ctx, s, "u/owner/repo/project.json", record{Name: "repo", Items: []string{"a"}}, 0))
	require.NoError(t, s.PutBytes(ctx, []byte(`{"name":"log"}`), "u/owner/repo/abc/build_log.json", "application/json", 0))
	require.NoError(t, s.PutBytes(ctx, []byte("<html></html>"), "u/owner/repo/abc/01-GEN.html", "", 0))
	require.NoError(t, s.PutBytes(ctx, []byte("other"), "u/owner/repository/abc/x.html", "", 0))

	found, err = s.GetJSON(ctx, "/u/owner/repo/project.json", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "repo", got.Name)
	assert.Equal(t, []string{"a"}, got.Items)

	keys, err := s.ListByPrefix(ctx, "u/owner/repo/abc/")
	require.NoError(t, err)
	assert.Equal(t, []string{"u/owner/repo/abc/01-GEN.html", "u/owner/repo/abc/build_log.json"}, keys)

	n, err := DeletePrefix(ctx, s, "u/owner/repo/abc/")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err = s.ListByPrefix(ctx, "u/owner/")
	require.NoError(t, err)
	assert.Equal(t, []string{"u/owner/repo/project.json", "u/owner/repository/abc/x.html"}, keys)

	require.NoError(t, s.Delete(ctx, "u/owner/repo/missing.json"))

	local := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(local, []byte("<p>hi</p>"), 0o600))
	require.NoError(t, s.PutFile(ctx, local, "u/owner/repo/def/page.html", 0))
	keys, err = s.ListByPrefix(ctx, "u/owner/repo/def")
	require.NoError(t, err)
	assert.Equal(t, []string{"u/owner/repo/def/page.html"}, keys)

	_, err = s.GetJSON(ctx, "../escape.json", &got)
	require.Error(t, err)
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore("cdn"))
}

func TestFSStore_Contract(t *testing.T) {
	p, err := NewFSProvider(t.TempDir())
	require.NoError(t, err)
	s, err := p.Open("cdn")
	require.NoError(t, err)
	assert.Equal(t, "cdn", s.Bucket())
	exerciseStore(t, s)
}

func TestFSProvider_RejectsBadBucket(t *testing.T) {
	p, err := NewFSProvider(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "..", "a/b"} {
		_, err := p.Open(name)
		assert.Error(t, err, "bucket %q", name)
	}
}

func TestMemoryStore_RecordsHeaders(t *testing.T) {
	s := NewMemoryStore("cdn")
	require.NoError(t, PutJSON(context.Background(), s, "u/o/r/project.json", map[string]string{"a": "b"}, 0))

	obj, ok := s.Object("u/o/r/project.json")
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.ContentType)
	assert.Equal(t, "max-age=0", obj.CacheControl)
	assert.Equal(t, 1, s.Calls().Put)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.StorageConfig{Backend: config.StorageFS, Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSProvider{}, p)

	p, err = NewProvider(config.StorageConfig{Backend: config.StorageS3, Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.IsType(t, &S3Provider{}, p)

	_, err = NewProvider(config.StorageConfig{Backend: "ftp"})
	require.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/json", ContentTypeFor("a/build_log.json"))
	assert.Equal(t, "text/html; charset=utf-8", ContentTypeFor("a/01-GEN.HTML"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a/noext"))
}
