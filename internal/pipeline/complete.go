package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/forge"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/metrics"
	"git.home.luguber.info/inful/txbridge/internal/observability"
	"git.home.luguber.info/inful/txbridge/internal/state"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

// Complete runs the callback flow for body and returns the updated build log.
// Redelivering the same callback stores the same records.
func (r *Runner) Complete(ctx context.Context, body []byte) (_ *state.BuildLog, err error) {
	ctx = observability.WithFlow(ctx, string(metrics.FlowComplete))
	inv := r.begin(metrics.FlowComplete)
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
	if err = inv.stage(StageConfig, tx.RequireComplete); err != nil {
		return nil, err
	}
	var job *txjob.Job
	if err = inv.stage(StagePayload, func() error {
		var perr error
		if job, perr = forge.ParseCallback(env.Data); perr != nil {
			return perr
		}
		_, _, _, perr = txjob.ParseIdentifier(job.Identifier)
		return perr
	}); err != nil {
		return nil, err
	}
	inv.identifier = job.Identifier

	slog.InfoContext(ctx, "Received completion callback",
		logfields.Identifier(job.Identifier),
		logfields.Status(job.Status),
		slog.Bool("success", job.Success))

	ws, err := r.workspaces.Create("complete")
	if err != nil {
		inv.failed = StageWorkspace
		return nil, errors.FileSystemError("failed to create workspace").WithCause(err).Build()
	}
	defer func() {
		if cerr := ws.Cleanup(); cerr != nil {
			slog.Warn("Failed to remove workspace", logfields.Path(ws.Path()), logfields.Error(cerr))
		}
	}()

	var outputDir string
	if job.Output != "" {
		if err = inv.stage(StageOutput, func() error {
			dir, serr := ws.Subdir("output")
			if serr != nil {
				return errors.FileSystemError("failed to create output directory").WithCause(serr).Build()
			}
			outputDir, serr = r.source.Fetch(ctx, job.Output, "", dir)
			return serr
		}); err != nil {
			return nil, err
		}
	}

	var log *state.BuildLog
	if err = inv.stage(StageRecord, func() error {
		cdn, oerr := r.open(tx.CDNBucket)
		if oerr != nil {
			return oerr
		}
		var serr error
		log, serr = state.NewSynchronizer(cdn, tx.GogsURL).OnComplete(ctx, state.CompleteInput{
			Job:       *job,
			OutputDir: outputDir,
		})
		return serr
	}); err != nil {
		return nil, err
	}

	event, eerr := eventstore.NewCompletionRecorded(job.Identifier, eventstore.CompletionRecordedPayload{
		Status:        log.Status,
		Success:       log.Success,
		UploadedFiles: countFiles(outputDir),
		ErrorCount:    len(log.Errors),
	})
	r.emit(ctx, event, eerr)
	return log, nil
}

func countFiles(dir string) int {
	if dir == "" {
		return 0
	}
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}
