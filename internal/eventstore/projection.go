package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Job summary states.
const (
	JobStatusPending   = "pending"
	JobStatusSubmitted = "submitted"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// JobSummary is a read model of one identifier's lifecycle.
type JobSummary struct {
	Identifier   string            `json:"identifier"`
	Status       string            `json:"status"`
	Format       string            `json:"format,omitempty"`
	Resource     string            `json:"resource,omitempty"`
	Strategy     string            `json:"strategy,omitempty"`
	FileCount    int               `json:"file_count"`
	JobID        string            `json:"job_id,omitempty"`
	JobStatus    string            `json:"job_status,omitempty"`
	Success      bool              `json:"success"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
	FirstSeen    time.Time         `json:"first_seen"`
	LastUpdated  time.Time         `json:"last_updated"`
	ErrorStage   string            `json:"error_stage,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// JobHistoryProjection maintains an in-memory view of recent jobs,
// reconstructed from the event store.
type JobHistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	jobs     map[string]*JobSummary
	maxSize  int
	lastSync time.Time
}

// NewJobHistoryProjection creates a new projection backed by the given store.
func NewJobHistoryProjection(store Store, maxSize int) *JobHistoryProjection {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &JobHistoryProjection{
		store:   store,
		jobs:    make(map[string]*JobSummary),
		maxSize: maxSize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *JobHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = make(map[string]*JobSummary)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.pruneLocked()
	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event and updates the projection.
func (p *JobHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
	p.pruneLocked()
}

func (p *JobHistoryProjection) applyEventLocked(event Event) {
	id := event.Identifier()
	if id == "" {
		return
	}
	summary, ok := p.jobs[id]
	if !ok {
		summary = &JobSummary{Identifier: id, Status: JobStatusPending, FirstSeen: event.Timestamp()}
		p.jobs[id] = summary
	}
	summary.LastUpdated = event.Timestamp()

	switch event.Type() {
	case TypeManifestResolved:
		var payload ManifestResolvedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Format = payload.Format
			summary.Resource = payload.Resource
		}
		summary.Status = JobStatusPending
		summary.ErrorStage, summary.ErrorMessage = "", ""

	case TypeStrategyCompleted:
		var payload StrategyCompletedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Strategy = payload.Strategy
			summary.FileCount = payload.FileCount
			summary.Fingerprints = payload.Fingerprints
		}

	case TypeJobSubmitted:
		var payload JobSubmittedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.JobID = payload.JobID
			summary.JobStatus = payload.Status
		}
		summary.Status = JobStatusSubmitted

	case TypeCompletionRecorded:
		var payload CompletionRecordedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.JobStatus = payload.Status
			summary.Success = payload.Success
		}
		summary.Status = JobStatusCompleted

	case TypeInvocationFailed:
		var payload InvocationFailedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
		}
		summary.Status = JobStatusFailed
	}
}

// pruneLocked drops the least recently updated jobs beyond maxSize.
func (p *JobHistoryProjection) pruneLocked() {
	if len(p.jobs) <= p.maxSize {
		return
	}
	all := p.sortedLocked()
	for _, s := range all[p.maxSize:] {
		delete(p.jobs, s.Identifier)
	}
}

// sortedLocked returns summaries newest first.
func (p *JobHistoryProjection) sortedLocked() []*JobSummary {
	all := make([]*JobSummary, 0, len(p.jobs))
	for _, s := range p.jobs {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastUpdated.Equal(all[j].LastUpdated) {
			return all[i].Identifier < all[j].Identifier
		}
		return all[i].LastUpdated.After(all[j].LastUpdated)
	})
	return all
}

// GetHistory returns copies of the tracked jobs, most recently updated first.
func (p *JobHistoryProjection) GetHistory() []JobSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sorted := p.sortedLocked()
	out := make([]JobSummary, len(sorted))
	for i, s := range sorted {
		out[i] = *s
	}
	return out
}

// GetJob returns the summary for one identifier.
func (p *JobHistoryProjection) GetJob(identifier string) (JobSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.jobs[identifier]
	if !ok {
		return JobSummary{}, false
	}
	return *s, true
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *JobHistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
