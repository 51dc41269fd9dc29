package eventstore

import (
	"testing"
	"time"
)

func mustEvent(e *BaseEvent, err error) *BaseEvent {
	if err != nil {
		panic(err)
	}
	return e
}

func TestJobHistoryProjection_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	journal := NewJournal(store, NewJobHistoryProjection(store, 10))
	ctx := t.Context()

	journal.Record(ctx, mustEvent(NewManifestResolved(testIdentifier, ManifestResolvedPayload{
		Format: "usfm", Resource: "ulb", Source: "manifest.json", Key: "bibleusfm",
	})))
	journal.Record(ctx, mustEvent(NewStrategyCompleted(testIdentifier, StrategyCompletedPayload{
		Strategy: "usfm", Success: true, FileCount: 2,
	})))
	journal.Record(ctx, mustEvent(NewJobSubmitted(testIdentifier, JobSubmittedPayload{
		JobID: "j1", Status: "requested", ArchiveKey: "preconvert/x.zip",
	})))

	summary, ok := journal.Projection().GetJob(testIdentifier)
	if !ok {
		t.Fatal("expected job to be tracked")
	}
	if summary.Status != JobStatusSubmitted || summary.Strategy != "usfm" || summary.FileCount != 2 || summary.JobID != "j1" {
		t.Errorf("unexpected summary after submission: %+v", summary)
	}

	journal.Record(ctx, mustEvent(NewCompletionRecorded(testIdentifier, CompletionRecordedPayload{
		Status: "success", Success: true, UploadedFiles: 3,
	})))
	summary, _ = journal.Projection().GetJob(testIdentifier)
	if summary.Status != JobStatusCompleted || !summary.Success || summary.JobStatus != "success" {
		t.Errorf("unexpected summary after completion: %+v", summary)
	}

	events, err := journal.Events(ctx, testIdentifier)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 stored events, got %d", len(events))
	}

	rebuilt := NewJobHistoryProjection(store, 10)
	if err := rebuilt.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	again, ok := rebuilt.GetJob(testIdentifier)
	if !ok || again.Status != JobStatusCompleted || again.JobID != "j1" {
		t.Errorf("rebuilt projection differs: %+v", again)
	}
	if rebuilt.LastSyncTime().IsZero() {
		t.Error("expected last sync time to be set")
	}
}

func TestJobHistoryProjection_Failure(t *testing.T) {
	p := NewJobHistoryProjection(newTestStore(t), 10)
	p.Apply(mustEvent(NewInvocationFailed(testIdentifier, InvocationFailedPayload{
		Flow: "submit", Stage: "fetch", Category: "fetch", Error: "failed to download archive",
	})))

	summary, _ := p.GetJob(testIdentifier)
	if summary.Status != JobStatusFailed || summary.ErrorStage != "fetch" {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestJobHistoryProjection_Prunes(t *testing.T) {
	p := NewJobHistoryProjection(newTestStore(t), 2)
	base := time.Now()
	for i, id := range []string{"o/r/1", "o/r/2", "o/r/3"} {
		p.Apply(&BaseEvent{EventIdentifier: id, EventType: TypeJobSubmitted, EventTimestamp: base.Add(time.Duration(i) * time.Second), EventPayload: []byte(`{}`)})
	}

	history := p.GetHistory()
	if len(history) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(history))
	}
	if history[0].Identifier != "o/r/3" || history[1].Identifier != "o/r/2" {
		t.Errorf("unexpected order: %s, %s", history[0].Identifier, history[1].Identifier)
	}
	if _, ok := p.GetJob("o/r/1"); ok {
		t.Error("expected oldest job to be pruned")
	}
}
