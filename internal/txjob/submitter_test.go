package txjob

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/storage"
)

func newTestSubmitter(t *testing.T, handler http.HandlerFunc) (*Submitter, *storage.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tx := config.TXConfig{
		APIURL:           srv.URL,
		PreConvertBucket: "tx-webhook-client",
		CDNBucket:        "cdn.example.org",
		GogsURL:          "https://git.example.org",
		GogsUserToken:    "secret",
	}
	store := storage.NewMemoryStore(tx.PreConvertBucket)
	s := NewSubmitter(tx, store,
		WithHTTPClient(srv.Client()),
		WithIDGenerator(func() string { return "req-1" }))
	return s, store
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return dir
}

func TestCommitPrefix(t *testing.T) {
	assert.Equal(t, "abc1234567", CommitPrefix("abc1234567890fedcba", 10))
	assert.Equal(t, "abc1234567", CommitPrefix("abc1234567890fedcba", 0))
	assert.Equal(t, "abc", CommitPrefix("abc", 10))
	assert.Equal(t, "owner/repo/abc1234567", Identifier("owner", "repo", "abc1234567890", 10))
}

func TestParseIdentifier(t *testing.T) {
	owner, repo, commit, err := ParseIdentifier("owner/repo/abc1234567")
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "repo", "abc1234567"}, []string{owner, repo, commit})

	for _, bad := range []string{"", "owner/repo", "owner//abc", "a/b/c/d", "/repo/abc"} {
		_, _, _, err := ParseIdentifier(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.HasCategory(err, errors.CategoryValidation), bad)
	}
}

func TestSubmit_PacksUploadsAndPosts(t *testing.T) {
	var got Descriptor
	s, store := newTestSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tx/job", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"job":{"job_id":"j1","identifier":"owner/repo/abc1234567","status":"requested","created_at":"2017-01-01T00:00:00Z"}}`))
	})

	out := writeTree(t, map[string]string{"41-MAT.usfm": `\id MAT`})
	sub, err := s.Submit(context.Background(), Request{
		Identifier:   "owner/repo/abc1234567",
		ResourceType: "ulb",
		InputFormat:  "usfm",
		OutDir:       out,
		Manifest:     []byte(`{"package_version":6}`),
		WorkDir:      t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, "preconvert/req-1.zip", sub.ArchiveKey)
	assert.Equal(t, 2, sub.Entries)
	assert.Equal(t, "j1", sub.Job.JobID)
	assert.Equal(t, []string{}, sub.Job.Log)

	assert.Equal(t, Descriptor{
		Identifier:   "owner/repo/abc1234567",
		UserToken:    "secret",
		ResourceType: "ulb",
		InputFormat:  "usfm",
		OutputFormat: "html",
		Source:       "https://s3-us-west-2.amazonaws.com/tx-webhook-client/preconvert/req-1.zip",
		Callback:     s.tx.APIURL + "/client/callback",
	}, got)

	obj, ok := store.Object("preconvert/req-1.zip")
	require.True(t, ok)
	zr, err := zip.NewReader(bytes.NewReader(obj.Data), int64(len(obj.Data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"41-MAT.usfm", "manifest.json"}, names)
}

func TestPost_ResponseHandling(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error message in body", http.StatusOK, `{"errorMessage":"Unsupported input format"}`, "Unsupported input format"},
		{"error message with failure status", http.StatusBadRequest, `{"errorMessage":"bad identifier"}`, "bad identifier"},
		{"status text without body", http.StatusBadGateway, ``, "Bad Gateway"},
		{"success without job", http.StatusOK, `{}`, "conversion service did not return any info about the job request"},
		{"unreadable body", http.StatusOK, `not json`, "conversion service returned an unreadable response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestSubmitter(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := s.Post(context.Background(), Descriptor{Identifier: "o/r/c"})
			require.Error(t, err)
			c, ok := errors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryRemote, c.Category())
			assert.Equal(t, tc.wantMsg, c.Message())
		})
	}
}

func TestSubmit_UploadFailureIsStorageError(t *testing.T) {
	s, store := newTestSubmitter(t, func(http.ResponseWriter, *http.Request) {
		t.Error("job must not be posted when the upload fails")
	})
	store.FailPut = os.ErrPermission

	_, err := s.Submit(context.Background(), Request{
		Identifier: "o/r/c",
		OutDir:     writeTree(t, map[string]string{"a.md": "# A"}),
		WorkDir:    t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryStorage))
}
