package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/fetch"
	"git.home.luguber.info/inful/txbridge/internal/forge"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/manifest"
	"git.home.luguber.info/inful/txbridge/internal/metrics"
	"git.home.luguber.info/inful/txbridge/internal/observability"
	"git.home.luguber.info/inful/txbridge/internal/preprocess"
	"git.home.luguber.info/inful/txbridge/internal/state"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
	"git.home.luguber.info/inful/txbridge/internal/workspace"
)

// Submit runs the webhook flow for body and returns the stored build log.
// Configuration and payload problems abort before any side effect.
func (r *Runner) Submit(ctx context.Context, body []byte) (_ *state.BuildLog, err error) {
	ctx = observability.WithFlow(ctx, string(metrics.FlowSubmit))
	inv := r.begin(metrics.FlowSubmit)
	defer func() { inv.finish(ctx, err) }()

	var env forge.Envelope
	if err = inv.stage(StagePayload, func() error {
		var derr error
		env, derr = forge.DecodeEnvelope(body)
		return derr
	}); err != nil {
		return nil, err
	}
	tx := r.tx.WithVars(env.Vars)
	if err = inv.stage(StageConfig, tx.RequireSubmit); err != nil {
		return nil, err
	}
	var push *forge.Push
	if err = inv.stage(StagePayload, func() error {
		p, perr := forge.ParsePush(env.Data)
		if perr != nil {
			return perr
		}
		if ferr := p.RequireForge(tx.GogsURL); ferr != nil {
			return ferr
		}
		push = p
		return nil
	}); err != nil {
		return nil, err
	}
	inv.identifier = txjob.Identifier(push.Owner, push.Repo, push.CommitID, tx.CommitPrefixLength)
	commitPrefix := txjob.CommitPrefix(push.CommitID, tx.CommitPrefixLength)

	slog.InfoContext(ctx, "Received push",
		logfields.Identifier(inv.identifier),
		slog.String("pusher", push.Pusher))

	ws, err := r.workspaces.Create("submit")
	if err != nil {
		inv.failed = StageWorkspace
		return nil, errors.FileSystemError("failed to create workspace").WithCause(err).Build()
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			slog.Warn("Failed to remove workspace", logfields.Path(ws.Path()), logfields.Error(cerr))
		}
	}()

	var root string
	if err = inv.stage(StageFetch, func() error {
		dir, serr := ws.Subdir("fetch")
		if serr != nil {
			return errors.FileSystemError("failed to create fetch directory").WithCause(serr).Build()
		}
		root, serr = r.source.Retrieve(ctx, fetch.Request{
			ArchiveURL: push.ArchiveURL(),
			CloneURL:   push.CloneURL,
			Commit:     push.CommitID,
			Token:      tx.GogsUserToken,
		}, dir)
		return serr
	}); err != nil {
		return nil, err
	}

	var (
		res *manifest.Resolution
		key preprocess.DispatchKey
	)
	if err = inv.stage(StageResolve, func() error {
		var rerr error
		res, rerr = r.resolver.Resolve(root, push.Repo)
		if rerr != nil {
			return rerr
		}
		key = r.dispatcher.KeyFor(res)
		return nil
	}); err != nil {
		return nil, err
	}
	event, eerr := eventstore.NewManifestResolved(inv.identifier, eventstore.ManifestResolvedPayload{
		Format:    res.Manifest.Format,
		Resource:  key.Resource,
		Generator: res.Generator,
		Source:    res.Source,
		Key:       key.String(),
	})
	r.emit(ctx, event, eerr)

	outDir, err := r.preprocess(ctx, inv, ws, res, key)
	if err != nil {
		return nil, err
	}

	var sub *txjob.Submission
	if err = inv.stage(StageSubmit, func() error {
		pre, oerr := r.open(tx.PreConvertBucket)
		if oerr != nil {
			return oerr
		}
		manifestData, serr := manifestForArchive(outDir, res.ManifestPath)
		if serr != nil {
			return serr
		}
		sub, serr = txjob.NewSubmitter(tx, pre, r.submitOpts...).Submit(ctx, txjob.Request{
			Identifier:   inv.identifier,
			ResourceType: res.Manifest.ResourceID(),
			InputFormat:  res.Manifest.Format,
			OutDir:       outDir,
			Manifest:     manifestData,
			WorkDir:      ws.Path(),
		})
		return serr
	}); err != nil {
		return nil, err
	}
	event, eerr = eventstore.NewJobSubmitted(inv.identifier, eventstore.JobSubmittedPayload{
		JobID:      sub.Job.JobID,
		Status:     sub.Job.Status,
		ArchiveKey: sub.ArchiveKey,
		Source:     sub.Descriptor.Source,
	})
	r.emit(ctx, event, eerr)

	var log *state.BuildLog
	if err = inv.stage(StageRecord, func() error {
		cdn, oerr := r.open(tx.CDNBucket)
		if oerr != nil {
			return oerr
		}
		var serr error
		log, serr = state.NewSynchronizer(cdn, tx.GogsURL).OnSubmit(ctx, state.SubmitInput{
			Owner:         push.Owner,
			Repo:          push.Repo,
			CommitID:      push.CommitID,
			CommitPrefix:  commitPrefix,
			CommittedBy:   push.Pusher,
			CommitURL:     push.CommitURL,
			CompareURL:    push.CompareURL,
			CommitMessage: push.CommitMessage,
			Job:           sub.Job,
			ManifestPath:  res.ManifestPath,
		})
		return serr
	}); err != nil {
		return nil, err
	}
	return log, nil
}

// manifestForArchive returns the canonical manifest to add to the archive, or
// nil when the strategy output already has one.
func manifestForArchive(outDir, manifestPath string) ([]byte, error) {
	if _, err := os.Stat(filepath.Join(outDir, manifest.FileName)); err == nil {
		return nil, nil
	}
	data, err := os.ReadFile(manifestPath) // #nosec G304 -- written by the resolver
	if err != nil {
		return nil, errors.FileSystemError("failed to read canonical manifest").
			WithCause(err).
			WithContext("path", manifestPath).
			Build()
	}
	return data, nil
}

// preprocess runs the dispatched strategy into a fresh output directory.
// A strategy that reports no success is logged and the job still goes out.
func (r *Runner) preprocess(ctx context.Context, inv *invocation, ws *workspace.Workspace, res *manifest.Resolution, key preprocess.DispatchKey) (string, error) {
	var (
		outDir string
		result preprocess.Result
		name   string
	)
	err := inv.stage(StagePreproc, func() error {
		var serr error
		outDir, serr = ws.Subdir("out")
		if serr != nil {
			return errors.FileSystemError("failed to create output directory").WithCause(serr).Build()
		}
		strategy := r.dispatcher.Dispatch(key, res.Manifest, res.ContentDir, outDir)
		name = strategy.Name()
		r.recorder.IncStrategy(name)
		result, serr = strategy.Run(ctx)
		return serr
	})
	if err != nil {
		return "", err
	}

	if !result.Success {
		r.recorder.IncStageResult(StagePreproc, metrics.ResultWarning)
		slog.WarnContext(ctx, "Strategy produced no usable output",
			logfields.Identifier(inv.identifier),
			logfields.Strategy(name),
			logfields.Count(len(result.Warnings)))
	}
	for _, w := range result.Warnings {
		slog.DebugContext(ctx, "Strategy warning", logfields.Strategy(name), slog.String("warning", w))
	}
	event, eerr := eventstore.NewStrategyCompleted(inv.identifier, eventstore.StrategyCompletedPayload{
		Strategy:     name,
		Success:      result.Success,
		FileCount:    len(result.Files),
		Warnings:     result.Warnings,
		Fingerprints: result.Fingerprints,
	})
	r.emit(ctx, event, eerr)
	return outDir, nil
}
