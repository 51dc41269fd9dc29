package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

func clearTXEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvAPIURL, EnvPreConvertBucket, EnvCDNBucket, EnvGogsURL, EnvGogsUserToken,
		EnvSourceURLBase, EnvStorageBackend, EnvStorageEndpoint, EnvStorageRoot, EnvNATSURL,
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	clearTXEnv(t)
	t.Setenv("TEST_GOGS_TOKEN", "secret-token")

	dir := t.TempDir()
	path := filepath.Join(dir, "txbridge.yaml")
	content := `tx:
  api_url: https://api.example.org/
  pre_convert_bucket: pre
  cdn_bucket: cdn
  gogs_url: https://git.example.org
  gogs_user_token: ${TEST_GOGS_TOKEN}
storage:
  backend: fs
  root: ` + filepath.Join(dir, "objects") + `
fetch:
  retry_backoff: EXPONENTIAL
dispatch:
  resource_aliases:
    reg: bible
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.org", cfg.TX.APIURL)
	assert.Equal(t, "secret-token", cfg.TX.GogsUserToken)
	assert.Equal(t, DefaultSourceURLBase, cfg.TX.SourceURLBase)
	assert.Equal(t, DefaultCommitPrefixLength, cfg.TX.CommitPrefixLength)
	assert.Equal(t, StorageFS, cfg.Storage.Backend)
	assert.Equal(t, RetryBackoffExponential, cfg.Fetch.RetryBackoff)
	assert.Equal(t, FetchArchive, cfg.Fetch.Mode)
	assert.Equal(t, "bible", cfg.Dispatch.ResourceAliases["reg"])
	assert.Equal(t, DefaultWebhookAddr, cfg.Server.WebhookAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearTXEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "txbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tx:\n  cdn_bucket: from-file\n"), 0o600))
	t.Setenv(EnvCDNBucket, "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.TX.CDNBucket)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoad_RejectsUnknownBackoff(t *testing.T) {
	clearTXEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  retry_backoff: random\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry_backoff")
}

func TestLoad_NormalizesEnums(t *testing.T) {
	clearTXEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	content := "storage:\n  backend: MinIO\n  endpoint: minio.local:9000\nfetch:\n  mode: ' Git '\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, StorageS3, cfg.Storage.Backend)
	assert.Equal(t, FetchGit, cfg.Fetch.Mode)
	assert.Equal(t, RetryBackoffLinear, cfg.Fetch.RetryBackoff)
}

func TestLoad_RejectsUnknownFetchMode(t *testing.T) {
	clearTXEnv(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  mode: svn\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch.mode")
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "txbridge.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}

func TestTXConfig_WithVars(t *testing.T) {
	base := TXConfig{APIURL: "https://api.example.org", CDNBucket: "cdn"}
	got := base.WithVars(map[string]any{
		VarAPIURL:        "https://other.example.org/",
		VarGogsUserToken: "tok",
		VarCDNBucket:     "",
		"unrelated":      "ignored",
		VarGogsURL:       42,
	})

	assert.Equal(t, "https://other.example.org", got.APIURL)
	assert.Equal(t, "tok", got.GogsUserToken)
	assert.Equal(t, "cdn", got.CDNBucket)
	assert.Empty(t, got.GogsURL)
	assert.Equal(t, "https://api.example.org", base.APIURL, "receiver must not change")
}

func TestTXConfig_RequireSubmit(t *testing.T) {
	full := TXConfig{
		APIURL:           "https://api.example.org",
		PreConvertBucket: "pre",
		CDNBucket:        "cdn",
		GogsURL:          "https://git.example.org",
		GogsUserToken:    "tok",
	}
	require.NoError(t, full.RequireSubmit())

	missing := full
	missing.PreConvertBucket = ""
	err := missing.RequireSubmit()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, "pre_convert_bucket not found in configuration", ce.Message())
}

func TestTXConfig_RequireComplete(t *testing.T) {
	require.NoError(t, TXConfig{CDNBucket: "cdn"}.RequireComplete())
	err := TXConfig{APIURL: "https://api.example.org"}.RequireComplete()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cdn_bucket not found")
}

func TestTXConfig_URLs(t *testing.T) {
	tx := TXConfig{APIURL: "https://api.example.org"}
	assert.Equal(t, "https://api.example.org/tx/job", tx.JobURL())
	assert.Equal(t, "https://api.example.org/client/callback", tx.CallbackURL())
}

func TestDurations(t *testing.T) {
	assert.Equal(t, "2m0s", FetchConfig{}.TimeoutDuration().String())
	assert.Equal(t, "5s", FetchConfig{Timeout: "5s"}.TimeoutDuration().String())
	assert.Equal(t, "2m0s", FetchConfig{Timeout: "bogus"}.TimeoutDuration().String())
}

func TestLoggingConfig_SlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, LoggingConfig{Level: in}.SlogLevel(), in)
	}
}
