package eventstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

// Journal appends events to a store and keeps a projection current.
// Failures are logged and never reach the invocation that emitted the event.
type Journal struct {
	store      Store
	projection *JobHistoryProjection
}

// NewJournal creates a journal. projection may be nil.
func NewJournal(store Store, projection *JobHistoryProjection) *Journal {
	return &Journal{store: store, projection: projection}
}

// Record appends event. A nil journal or event is ignored.
func (j *Journal) Record(ctx context.Context, event Event) {
	if j == nil || event == nil {
		return
	}
	if err := j.store.Append(ctx, event); err != nil {
		slog.Warn("Failed to append lifecycle event",
			logfields.Identifier(event.Identifier()),
			slog.String("type", event.Type()),
			logfields.Error(err))
		return
	}
	if j.projection != nil {
		j.projection.Apply(event)
	}
}

// Events returns the stored events of identifier.
func (j *Journal) Events(ctx context.Context, identifier string) ([]Event, error) {
	return j.store.GetByIdentifier(ctx, identifier)
}

// Projection returns the job history projection, possibly nil.
func (j *Journal) Projection() *JobHistoryProjection {
	return j.projection
}
