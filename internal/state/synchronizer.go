package state

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/storage"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

// ContentCacheSeconds is the cache lifetime of converted output files.
// Records are always written with no caching.
const ContentCacheSeconds = 600

// Synchronizer merges job lifecycle events into the build log and project
// index of the CDN bucket.
type Synchronizer struct {
	store   storage.Store
	gogsURL string
}

// NewSynchronizer creates a synchronizer writing to store. gogsURL is the
// forge base used for project repo_url values.
func NewSynchronizer(store storage.Store, gogsURL string) *Synchronizer {
	return &Synchronizer{store: store, gogsURL: strings.TrimRight(gogsURL, "/")}
}

// SubmitInput is everything recorded when a job has been accepted.
type SubmitInput struct {
	Owner         string
	Repo          string
	CommitID      string
	CommitPrefix  string
	CommittedBy   string
	CommitURL     string
	CompareURL    string
	CommitMessage string
	Job           txjob.Job
	// ManifestPath is the local canonical manifest copied next to the build log.
	ManifestPath string
}

// CompleteInput is a completion callback.
type CompleteInput struct {
	Job txjob.Job
	// OutputDir holds the expanded converted files, empty when there are none.
	OutputDir string
}

// OnSubmit clears the commit prefix, writes the initial build log and
// manifest copy and replaces the commit's project index entry.
func (s *Synchronizer) OnSubmit(ctx context.Context, in SubmitInput) (*BuildLog, error) {
	prefix := CommitPrefixKey(in.Owner, in.Repo, in.CommitPrefix)
	removed, err := storage.DeletePrefix(ctx, s.store, prefix)
	if err != nil {
		return nil, s.storageError("failed to clear previous commit artifacts", prefix, err)
	}
	if removed > 0 {
		slog.Info("Removed previous commit artifacts", logfields.Key(prefix), logfields.Count(removed))
	}

	log := &BuildLog{
		Job:           in.Job,
		RepoName:      in.Repo,
		RepoOwner:     in.Owner,
		CommitID:      in.CommitID,
		CommittedBy:   in.CommittedBy,
		CommitURL:     in.CommitURL,
		CompareURL:    in.CompareURL,
		CommitMessage: in.CommitMessage,
	}
	log.Normalize()
	key := prefix + BuildLogFile
	if err := storage.PutJSON(ctx, s.store, key, log, 0); err != nil {
		return nil, s.storageError("failed to write build log", key, err)
	}

	if in.ManifestPath != "" {
		key := prefix + ManifestFile
		if err := s.store.PutFile(ctx, in.ManifestPath, key, 0); err != nil {
			return nil, s.storageError("failed to write manifest copy", key, err)
		}
	}

	if err := s.updateProject(ctx, in.Owner, in.Repo, EntryFromJob(in.CommitPrefix, in.Job)); err != nil {
		return nil, err
	}
	slog.Info("Recorded job submission",
		logfields.Identifier(in.Job.Identifier),
		logfields.Status(in.Job.Status))
	return log, nil
}

// OnComplete uploads converted files and overlays the completion fields
// onto the build log. Applying the same callback twice stores the same bytes.
func (s *Synchronizer) OnComplete(ctx context.Context, in CompleteInput) (*BuildLog, error) {
	owner, repo, commit, err := txjob.ParseIdentifier(in.Job.Identifier)
	if err != nil {
		return nil, err
	}
	prefix := CommitPrefixKey(owner, repo, commit)

	if in.OutputDir != "" {
		n, err := s.uploadTree(ctx, in.OutputDir, prefix)
		if err != nil {
			return nil, err
		}
		slog.Info("Uploaded converted files", logfields.Key(prefix), logfields.Count(n))
	}

	key := prefix + BuildLogFile
	log := &BuildLog{}
	found, err := s.store.GetJSON(ctx, key, log)
	if err != nil {
		return nil, errors.StorageError("failed to read build log").
			WithCause(err).
			WithContext("key", key).
			Build()
	}
	if !found {
		slog.Warn("Build log missing at completion, starting a fresh one", logfields.Key(key))
		log = &BuildLog{
			Job:       txjob.Job{Identifier: in.Job.Identifier},
			RepoName:  repo,
			RepoOwner: owner,
			CommitID:  commit,
		}
	}
	overlayCompletion(log, in.Job)
	if err := storage.PutJSON(ctx, s.store, key, log, 0); err != nil {
		return nil, s.storageError("failed to write build log", key, err)
	}

	if err := s.updateProject(ctx, owner, repo, EntryFromJob(commit, in.Job)); err != nil {
		return nil, err
	}
	slog.Info("Recorded job completion",
		logfields.Identifier(in.Job.Identifier),
		logfields.Status(in.Job.Status),
		slog.Bool("success", in.Job.Success))
	return log, nil
}

// overlayCompletion copies the completion fields of job onto log. The
// three message lists are replaced, never merged; absent lists become empty.
func overlayCompletion(log *BuildLog, job txjob.Job) {
	log.StartedAt = job.StartedAt
	log.EndedAt = job.EndedAt
	log.Success = job.Success
	log.Status = job.Status
	log.Message = job.Message
	log.Log = nonEmpty(job.Log)
	log.Warnings = nonEmpty(job.Warnings)
	log.Errors = nonEmpty(job.Errors)
	log.Normalize()
}

func nonEmpty(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	return in
}

// updateProject read-modify-writes the project index with entry.
func (s *Synchronizer) updateProject(ctx context.Context, owner, repo string, entry CommitEntry) error {
	key := ProjectKey(owner, repo)
	project := &ProjectIndex{}
	if _, err := s.store.GetJSON(ctx, key, project); err != nil {
		return errors.StorageError("failed to read project index").
			WithCause(err).
			WithContext("key", key).
			Build()
	}
	project.Normalize()
	project.User = owner
	project.Repo = repo
	if s.gogsURL != "" {
		project.RepoURL = s.gogsURL + "/" + owner + "/" + repo
	}
	project.ReplaceCommit(entry)
	if err := storage.PutJSON(ctx, s.store, key, project, 0); err != nil {
		return s.storageError("failed to write project index", key, err)
	}
	return nil
}

// uploadTree uploads every file below dir under prefix in lexical order.
func (s *Synchronizer) uploadTree(ctx context.Context, dir, prefix string) (int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, errors.FileSystemError("failed to list converted files").
			WithCause(err).
			WithContext("dir", dir).
			Build()
	}
	for i, p := range files {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return i, errors.InternalError("converted file outside output dir").WithCause(err).Build()
		}
		key := prefix + filepath.ToSlash(rel)
		if err := s.store.PutFile(ctx, p, key, ContentCacheSeconds); err != nil {
			return i, s.storageError("failed to upload converted file", key, err)
		}
	}
	return len(files), nil
}

// BuildLog reads the build log of identifier.
func (s *Synchronizer) BuildLog(ctx context.Context, identifier string) (*BuildLog, bool, error) {
	owner, repo, commit, err := txjob.ParseIdentifier(identifier)
	if err != nil {
		return nil, false, err
	}
	log := &BuildLog{}
	found, err := s.store.GetJSON(ctx, BuildLogKey(owner, repo, commit), log)
	if err != nil || !found {
		return nil, found, err
	}
	log.Normalize()
	return log, true, nil
}

// Project reads the project index of owner/repo.
func (s *Synchronizer) Project(ctx context.Context, owner, repo string) (*ProjectIndex, bool, error) {
	project := &ProjectIndex{}
	found, err := s.store.GetJSON(ctx, ProjectKey(owner, repo), project)
	if err != nil || !found {
		return nil, found, err
	}
	project.Normalize()
	return project, true, nil
}

func (s *Synchronizer) storageError(msg, key string, cause error) error {
	return errors.StorageError(msg).
		WithCause(cause).
		WithContext("bucket", s.store.Bucket()).
		WithContext("key", key).
		Build()
}
