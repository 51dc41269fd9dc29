package integration

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/daemon"
	"git.home.luguber.info/inful/txbridge/internal/state"
	"git.home.luguber.info/inful/txbridge/internal/storage"
)

var updateGolden = flag.Bool("update-golden", false, "Update golden files")

const (
	preBucket = "tx-webhook-client"
	cdnBucket = "cdn.example.org"
	owner     = "owner"
	// forgeURL only has to match the commit URLs of the pushes.
	forgeURL = "https://git.example.org"
)

// TestGolden_USFMBible pushes a plain USFM bible and checks the renamed books.
func TestGolden_USFMBible(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping golden test in short mode")
	}
	runGoldenTest(t, "en_ulb", "../testdata/repos/usfm-bible", "../testdata/golden/usfm-bible.json")
}

// TestGolden_OBSMarkdown pushes markdown stories and checks they are passed through.
func TestGolden_OBSMarkdown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping golden test in short mode")
	}
	runGoldenTest(t, "en_obs", "../testdata/repos/obs-markdown", "../testdata/golden/obs-markdown.json")
}

func runGoldenTest(t *testing.T, repoName, fixture, golden string) {
	t.Helper()

	repoDir, commit := setupTestRepo(t, fixture)
	tx := newFakeTX(t)
	root := filepath.Join(t.TempDir(), "objects")

	cfg := &config.Config{
		TX: config.TXConfig{
			APIURL:             tx.srv.URL,
			PreConvertBucket:   preBucket,
			CDNBucket:          cdnBucket,
			GogsURL:            forgeURL,
			GogsUserToken:      "token",
			SourceURLBase:      "https://s3.example.org",
			CommitPrefixLength: config.DefaultCommitPrefixLength,
		},
		Storage:   config.StorageConfig{Backend: config.StorageFS, Root: root},
		Fetch:     config.FetchConfig{Mode: config.FetchGit},
		Server:    config.ServerConfig{WebhookAddr: "127.0.0.1:0", AdminAddr: "127.0.0.1:0"},
		Workspace: config.WorkspaceConfig{BaseDir: filepath.Join(t.TempDir(), "ws")},
		Events:    config.EventsConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "events.db")},
		Logging:   config.LoggingConfig{Level: "info", Format: "text"},
	}

	ctx := context.Background()
	components, err := daemon.Assemble(ctx, cfg)
	require.NoError(t, err)
	d, err := daemon.New(cfg, components)
	require.NoError(t, err)
	require.NoError(t, d.Start(ctx))
	t.Cleanup(func() { _ = d.Stop(context.Background()) })

	webhook := "http://" + d.HTTPServer().Addr("webhook").String()
	prefix := commit[:config.DefaultCommitPrefixLength]
	identifier := owner + "/" + repoName + "/" + prefix

	push := map[string]any{
		"after":       commit,
		"compare_url": forgeURL + "/" + owner + "/" + repoName + "/compare/" + commit,
		"commits": []map[string]any{{
			"id":      commit,
			"message": "Initial test commit",
			"url":     forgeURL + "/" + owner + "/" + repoName + "/commit/" + commit,
		}},
		"repository": map[string]any{
			"name":      repoName,
			"owner":     map[string]any{"username": owner},
			"clone_url": repoDir,
		},
		"pusher": map[string]any{"username": "tester"},
	}
	resp, body := postJSON(t, webhook+"/webhook", map[string]any{"data": push})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var submitted state.BuildLog
	require.NoError(t, json.Unmarshal(body, &submitted))
	assert.Equal(t, identifier, submitted.Identifier)
	assert.Equal(t, "tester", submitted.CommittedBy)

	desc := tx.last(t)
	got := Golden{
		ResourceType: desc.ResourceType,
		InputFormat:  desc.InputFormat,
		OutputFormat: desc.OutputFormat,
	}

	preKeys := bucketKeys(t, root, preBucket, repoName, prefix)
	require.Len(t, preKeys, 1, "one pre-convert archive")
	got.Archive = zipEntries(t, filepath.Join(root, preBucket, filepath.FromSlash(preKeys[0])))
	got.CDNAfterSubmit = bucketKeys(t, root, cdnBucket, repoName, prefix)

	callback := map[string]any{
		"identifier": identifier,
		"job_id":     submitted.JobID,
		"success":    true,
		"status":     "success",
		"output":     tx.srv.URL + "/output/job.zip",
		"log":        []string{"converted"},
	}
	resp, body = postJSON(t, webhook+"/client/callback", map[string]any{"data": callback})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	got.CDNAfterCallback = bucketKeys(t, root, cdnBucket, repoName, prefix)

	compareGolden(t, golden, got, *updateGolden)

	provider, err := storage.NewFSProvider(root)
	require.NoError(t, err)
	cdn, err := provider.Open(cdnBucket)
	require.NoError(t, err)
	var final state.BuildLog
	found, err := cdn.GetJSON(ctx, state.BuildLogKey(owner, repoName, prefix), &final)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, final.Success)
	assert.Equal(t, []string{"converted"}, final.Log)

	summary, ok := components.Journal.Projection().GetJob(identifier)
	require.True(t, ok)
	assert.True(t, summary.Success)
}
