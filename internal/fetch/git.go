package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

type cloner interface {
	clone(ctx context.Context, url, commit string, auth transport.AuthMethod, dest string) error
}

type goGitCloner struct{}

func (goGitCloner) clone(ctx context.Context, url, commit string, auth transport.AuthMethod, dest string) error {
	repository, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{URL: url, Auth: auth})
	if err != nil {
		return err
	}
	wt, err := repository.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	hash, err := repository.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", commit, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", commit, err)
	}
	return nil
}

// Clone clones req.CloneURL into dest and checks out req.Commit.
func (f *Fetcher) Clone(ctx context.Context, req Request, dest string) (string, error) {
	var auth transport.AuthMethod
	if req.Token != "" {
		auth = &githttp.BasicAuth{Username: req.Token, Password: "x-oauth-basic"}
	}
	slog.Debug("Cloning repository", logfields.URL(req.CloneURL), logfields.Commit(req.Commit), logfields.Path(dest))

	err := f.policy.Do(ctx, func(ctx context.Context) error {
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to remove existing directory: %w", err)
		}
		return f.cloner.clone(ctx, req.CloneURL, req.Commit, auth, dest)
	}, func(err error) bool { return !isPermanentCloneError(err) })
	if err != nil {
		return "", errors.FetchError("failed to clone repository").
			WithCause(err).
			WithContext("url", req.CloneURL).
			WithContext("commit", req.Commit).
			Build()
	}
	slog.Info("Repository cloned successfully", logfields.URL(req.CloneURL), logfields.Commit(req.Commit))
	return dest, nil
}

func isPermanentCloneError(err error) bool {
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "authentication") ||
		strings.Contains(l, "not found") ||
		strings.Contains(l, "repository does not exist") ||
		strings.Contains(l, "unsupported protocol") ||
		strings.Contains(l, "resolve ")
}
