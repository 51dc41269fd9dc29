// Package fetch retrieves repository content and converted output.
//
// Archive mode downloads a zip over HTTP and expands it; git mode clones the
// repository and checks out the pushed commit. Failures are classified as
// fetch errors (retrieval) or expand errors (unusable archive).
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"git.home.luguber.info/inful/txbridge/internal/archive"
	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/retry"
)

// Request describes what to retrieve.
type Request struct {
	// ArchiveURL is the zip download location used in archive mode.
	ArchiveURL string
	// CloneURL and Commit are used in git mode.
	CloneURL string
	Commit   string
	// Token authenticates against the forge when set.
	Token string
}

// Source retrieves a request into dir and returns the content root.
type Source interface {
	Retrieve(ctx context.Context, req Request, dir string) (string, error)
}

// Fetcher implements Source for both archive and git modes.
type Fetcher struct {
	mode     config.FetchMode
	client   *http.Client
	policy   retry.Policy
	cache    *lru.Cache[string, string]
	cacheDir string
	cloner   cloner
	onRetry  func()
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithCacheDir keeps downloaded archives in dir, bounded by the configured
// cache size. Only immutable URLs (commit archives, job output) should be fetched
// through a caching Fetcher.
func WithCacheDir(dir string) Option {
	return func(f *Fetcher) { f.cacheDir = dir }
}

// WithRetryHook calls fn before every repeated download attempt.
func WithRetryHook(fn func()) Option {
	return func(f *Fetcher) { f.onRetry = fn }
}

// New creates a Fetcher from the fetch configuration.
func New(cfg config.FetchConfig, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		mode:   cfg.Mode,
		client: &http.Client{Timeout: cfg.TimeoutDuration()},
		policy: retry.FromFetchConfig(cfg),
		cloner: goGitCloner{},
	}
	if f.mode == "" {
		f.mode = config.FetchArchive
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.cacheDir != "" {
		if err := os.MkdirAll(f.cacheDir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		size := cfg.CacheSize
		if size <= 0 {
			size = config.DefaultFetchCacheSize
		}
		cache, err := lru.NewWithEvict[string, string](size, func(_ string, path string) {
			_ = os.Remove(path)
		})
		if err != nil {
			return nil, fmt.Errorf("create download cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Retrieve fetches req into dir according to the configured mode.
func (f *Fetcher) Retrieve(ctx context.Context, req Request, dir string) (string, error) {
	if f.mode == config.FetchGit && req.CloneURL != "" && req.Commit != "" {
		return f.Clone(ctx, req, filepath.Join(dir, "repo"))
	}
	return f.Fetch(ctx, req.ArchiveURL, req.Token, dir)
}

// Fetch downloads the zip at url into dir and expands it below dir. It returns
// the content root, unwrapping a single top-level directory.
func (f *Fetcher) Fetch(ctx context.Context, url, token, dir string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.FetchError("archive url is empty").Build()
	}
	archivePath := filepath.Join(dir, "download.zip")
	if err := f.Download(ctx, url, token, archivePath); err != nil {
		return "", err
	}
	expandDir := filepath.Join(dir, "src")
	if err := f.Expand(ctx, archivePath, expandDir); err != nil {
		return "", err
	}
	root := archive.SingleRoot(expandDir)
	slog.Debug("Archive expanded", logfields.URL(url), logfields.Path(root))
	return root, nil
}

// Expand extracts archivePath into dir.
func (f *Fetcher) Expand(ctx context.Context, archivePath, dir string) error {
	if err := archive.Expand(ctx, archivePath, dir); err != nil {
		return errors.ExpandError("failed to expand archive").
			WithCause(err).
			WithContext("archive", filepath.Base(archivePath)).
			Build()
	}
	return nil
}

// Download writes the body at url to dest, retrying transient failures.
func (f *Fetcher) Download(ctx context.Context, url, token, dest string) error {
	if f.cache != nil {
		if cached, ok := f.cache.Get(url); ok {
			if err := copyFile(cached, dest); err == nil {
				slog.Debug("Download served from cache", logfields.URL(url))
				return nil
			}
			f.cache.Remove(url)
		}
	}

	start := time.Now()
	attempt := 0
	err := f.policy.Do(ctx, func(ctx context.Context) error {
		if attempt > 0 && f.onRetry != nil {
			f.onRetry()
		}
		attempt++
		return f.downloadOnce(ctx, url, token, dest)
	}, isRetryable)
	if err != nil {
		if ce, ok := errors.AsClassified(err); ok {
			return ce
		}
		return errors.FetchError("failed to download archive").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("Archive downloaded", logfields.URL(url), logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	if f.cache != nil {
		cached := filepath.Join(f.cacheDir, cacheName(url))
		if err := copyFile(dest, cached); err == nil {
			f.cache.Add(url, cached)
		}
	}
	return nil
}

func (f *Fetcher) downloadOnce(ctx context.Context, url, token, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.FetchError("invalid archive url").WithCause(err).WithContext("url", url).Build()
	}
	if token != "" {
		req.Header.Set("Authorization", "token "+token)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b := errors.FetchError(fmt.Sprintf("failed to download archive: %s", resp.Status)).
			WithContext("url", url).
			WithContext("status", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			b = b.Retryable()
		} else {
			b = b.WithRetry(errors.RetryNever)
		}
		return b.Build()
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return errors.FileSystemError("failed to create download dir").WithCause(err).Build()
	}
	out, err := os.Create(dest) // #nosec G304 -- workspace path
	if err != nil {
		return errors.FileSystemError("failed to create archive file").WithCause(err).Build()
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// isRetryable treats transport errors and classified retryable errors as transient.
func isRetryable(err error) bool {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.CanRetry()
	}
	return true
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- cache or workspace path
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(dst) // #nosec G304 -- cache or workspace path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
