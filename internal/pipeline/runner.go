package pipeline

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/fetch"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
	"git.home.luguber.info/inful/txbridge/internal/manifest"
	"git.home.luguber.info/inful/txbridge/internal/metrics"
	"git.home.luguber.info/inful/txbridge/internal/notify"
	"git.home.luguber.info/inful/txbridge/internal/preprocess"
	"git.home.luguber.info/inful/txbridge/internal/storage"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
	"git.home.luguber.info/inful/txbridge/internal/workspace"
)

// Stage names used for metrics and failure events.
const (
	StageConfig    = "config"
	StagePayload   = "payload"
	StageFetch     = "fetch"
	StageResolve   = "resolve"
	StagePreproc   = "preprocess"
	StageSubmit    = "submit"
	StageRecord    = "record"
	StageOutput    = "output"
	StageWorkspace = "workspace"
)

// Source retrieves repository content and converted output archives.
type Source interface {
	Retrieve(ctx context.Context, req fetch.Request, dir string) (string, error)
	Fetch(ctx context.Context, url, token, dir string) (string, error)
}

// Runner executes submit and complete invocations.
type Runner struct {
	tx         config.TXConfig
	stores     storage.Provider
	source     Source
	resolver   *manifest.Resolver
	dispatcher *preprocess.Dispatcher
	workspaces *workspace.Manager
	recorder   metrics.Recorder
	journal    *eventstore.Journal
	notifier   notify.Notifier
	submitOpts []txjob.Option
}

// Option configures a Runner.
type Option func(*Runner)

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithJournal records lifecycle events in journal.
func WithJournal(j *eventstore.Journal) Option {
	return func(r *Runner) { r.journal = j }
}

// WithNotifier publishes lifecycle events through n.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Runner) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithSubmitterOptions passes options to every job submitter the runner creates.
func WithSubmitterOptions(opts ...txjob.Option) Option {
	return func(r *Runner) { r.submitOpts = append(r.submitOpts, opts...) }
}

// WithResolver replaces the default manifest resolver.
func WithResolver(res *manifest.Resolver) Option {
	return func(r *Runner) { r.resolver = res }
}

// NewRunner creates a runner. tx is the base invocation context that
// envelope vars are applied on top of.
func NewRunner(tx config.TXConfig, stores storage.Provider, source Source, dispatcher *preprocess.Dispatcher, workspaces *workspace.Manager, opts ...Option) *Runner {
	r := &Runner{
		tx:         tx,
		stores:     stores,
		source:     source,
		resolver:   manifest.NewResolver(),
		dispatcher: dispatcher,
		workspaces: workspaces,
		recorder:   metrics.NoopRecorder{},
		notifier:   notify.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatcher returns the runner's strategy dispatcher.
func (r *Runner) Dispatcher() *preprocess.Dispatcher {
	return r.dispatcher
}

// invocation tracks one flow execution.
type invocation struct {
	r          *Runner
	flow       metrics.Flow
	identifier string
	failed     string
	start      time.Time
}

func (r *Runner) begin(flow metrics.Flow) *invocation {
	return &invocation{r: r, flow: flow, start: time.Now()}
}

// stage runs fn as a named stage and records its duration and result.
func (inv *invocation) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	inv.r.recorder.ObserveStageDuration(name, time.Since(start))
	inv.r.recorder.IncStageResult(name, resultFor(err))
	if err != nil {
		inv.failed = name
	}
	return err
}

// finish records the invocation outcome and emits a failure event for err.
func (inv *invocation) finish(ctx context.Context, err error) {
	inv.r.recorder.ObserveInvocationDuration(inv.flow, time.Since(inv.start))
	inv.r.recorder.IncInvocationOutcome(inv.flow, resultFor(err))
	if err == nil {
		slog.InfoContext(ctx, "Invocation completed",
			logfields.Identifier(inv.identifier),
			logfields.DurationMS(float64(time.Since(inv.start).Milliseconds())))
		return
	}
	slog.ErrorContext(ctx, "Invocation failed",
		logfields.Identifier(inv.identifier),
		logfields.Stage(inv.failed),
		logfields.Error(err))
	if inv.identifier == "" {
		return
	}
	event, eerr := eventstore.NewInvocationFailed(inv.identifier, eventstore.InvocationFailedPayload{
		Flow:     string(inv.flow),
		Stage:    inv.failed,
		Category: string(errors.GetCategory(err)),
		Error:    err.Error(),
	})
	inv.r.emit(ctx, event, eerr)
}

// emit records and publishes a lifecycle event. Failures are logged only.
func (r *Runner) emit(ctx context.Context, event *eventstore.BaseEvent, err error) {
	if err != nil {
		slog.Warn("Failed to build lifecycle event", logfields.Error(err))
		return
	}
	r.journal.Record(ctx, event)
	if nerr := r.notifier.Notify(ctx, event); nerr != nil {
		slog.WarnContext(ctx, "Failed to publish lifecycle event",
			logfields.Identifier(event.Identifier()),
			logfields.Error(nerr))
	}
}

func (r *Runner) open(bucket string) (storage.Store, error) {
	store, err := r.stores.Open(bucket)
	if err != nil {
		return nil, errors.StorageError("failed to open bucket").
			WithCause(err).
			WithContext("bucket", bucket).
			Build()
	}
	return store, nil
}

func resultFor(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case stdErrors.Is(err, context.Canceled):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}
