// Package integration drives the assembled daemon over HTTP against local
// git repositories and a fake conversion service.
package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/storage"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

// Golden is the observable outcome of one webhook and callback round trip.
type Golden struct {
	ResourceType     string   `json:"resource_type"`
	InputFormat      string   `json:"input_format"`
	OutputFormat     string   `json:"output_format"`
	Archive          []string `json:"archive"`
	CDNAfterSubmit   []string `json:"cdn_after_submit"`
	CDNAfterCallback []string `json:"cdn_after_callback"`
}

// setupTestRepo creates a git repository from a fixture directory and
// returns its path and the hash of its single commit.
func setupTestRepo(t *testing.T, fixture string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, copyDir(fixture, dir), "failed to copy fixture")

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err, "failed to initialize git repo")
	w, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")
	require.NoError(t, w.AddGlob("."), "failed to add files to git")

	hash, err := w.Commit("Initial test commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err, "failed to create initial commit")
	return dir, hash.String()
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path) // #nosec G304 -- test fixture
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o600)
	})
}

// fakeTX records submitted jobs and serves their converted output.
type fakeTX struct {
	srv  *httptest.Server
	mu   sync.Mutex
	jobs []txjob.Descriptor
}

func newFakeTX(t *testing.T) *fakeTX {
	t.Helper()
	f := &fakeTX{}
	output := zipBytes(t, map[string]string{"index.html": "<html><body>converted</body></html>"})

	mux := http.NewServeMux()
	mux.HandleFunc("/tx/job", func(w http.ResponseWriter, r *http.Request) {
		var desc txjob.Descriptor
		if err := json.NewDecoder(r.Body).Decode(&desc); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.jobs = append(f.jobs, desc)
		n := len(f.jobs)
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"job":{"job_id":"job-%d","identifier":%q,"status":"requested","created_at":"2024-01-01T00:00:00Z","output":%q}}`,
			n, desc.Identifier, f.srv.URL+"/output/job.zip")
	})
	mux.HandleFunc("/output/job.zip", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(output)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTX) last(t *testing.T) txjob.Descriptor {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.jobs, "no job submitted")
	return f.jobs[len(f.jobs)-1]
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// bucketKeys lists a bucket of the fs object store with the repository name
// and commit prefix replaced by placeholders.
func bucketKeys(t *testing.T, root, bucket, repo, commitPrefix string) []string {
	t.Helper()
	provider, err := storage.NewFSProvider(root)
	require.NoError(t, err)
	store, err := provider.Open(bucket)
	require.NoError(t, err)
	keys, err := store.ListByPrefix(context.Background(), "")
	require.NoError(t, err)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.Replace(k, "/"+repo+"/", "/<repo>/", 1)
		k = strings.Replace(k, "/"+commitPrefix+"/", "/<commit>/", 1)
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func postJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body)) // #nosec G107 -- test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

// compareGolden checks got against the golden file, rewriting it when update is set.
func compareGolden(t *testing.T, path string, got Golden, update bool) {
	t.Helper()
	if update {
		data, err := json.MarshalIndent(got, "", "  ")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, append(data, '\n'), 0o600))
		t.Logf("updated golden file %s", path)
		return
	}
	data, err := os.ReadFile(path) // #nosec G304 -- golden fixture
	require.NoError(t, err, "golden file missing; run with -update-golden")
	var want Golden
	require.NoError(t, json.Unmarshal(data, &want))
	require.Equal(t, want, got)
}
