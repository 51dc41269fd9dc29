package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
)

// Event type names.
const (
	TypeManifestResolved   = "ManifestResolved"
	TypeStrategyCompleted  = "StrategyCompleted"
	TypeJobSubmitted       = "JobSubmitted"
	TypeCompletionRecorded = "CompletionRecorded"
	TypeInvocationFailed   = "InvocationFailed"
)

func newEvent(identifier, eventType string, payload any) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("identifier", identifier).
			Build()
	}
	return &BaseEvent{
		EventIdentifier: identifier,
		EventType:       eventType,
		EventTimestamp:  time.Now(),
		EventPayload:    data,
	}, nil
}

// ManifestResolvedPayload describes how a repository was classified.
type ManifestResolvedPayload struct {
	Format    string `json:"format"`
	Resource  string `json:"resource"`
	Generator string `json:"generator,omitempty"`
	Source    string `json:"source"`
	Key       string `json:"dispatch_key"`
}

// NewManifestResolved creates a ManifestResolved event.
func NewManifestResolved(identifier string, p ManifestResolvedPayload) (*BaseEvent, error) {
	return newEvent(identifier, TypeManifestResolved, p)
}

// StrategyCompletedPayload summarizes a preprocessing run.
type StrategyCompletedPayload struct {
	Strategy     string            `json:"strategy"`
	Success      bool              `json:"success"`
	FileCount    int               `json:"file_count"`
	Warnings     []string          `json:"warnings,omitempty"`
	Fingerprints map[string]string `json:"fingerprints,omitempty"`
}

// NewStrategyCompleted creates a StrategyCompleted event.
func NewStrategyCompleted(identifier string, p StrategyCompletedPayload) (*BaseEvent, error) {
	return newEvent(identifier, TypeStrategyCompleted, p)
}

// JobSubmittedPayload records an accepted job request.
type JobSubmittedPayload struct {
	JobID      string `json:"job_id,omitempty"`
	Status     string `json:"status"`
	ArchiveKey string `json:"archive_key"`
	Source     string `json:"source"`
}

// NewJobSubmitted creates a JobSubmitted event.
func NewJobSubmitted(identifier string, p JobSubmittedPayload) (*BaseEvent, error) {
	return newEvent(identifier, TypeJobSubmitted, p)
}

// CompletionRecordedPayload records a processed completion callback.
type CompletionRecordedPayload struct {
	Status        string `json:"status"`
	Success       bool   `json:"success"`
	UploadedFiles int    `json:"uploaded_files"`
	ErrorCount    int    `json:"error_count"`
}

// NewCompletionRecorded creates a CompletionRecorded event.
func NewCompletionRecorded(identifier string, p CompletionRecordedPayload) (*BaseEvent, error) {
	return newEvent(identifier, TypeCompletionRecorded, p)
}

// InvocationFailedPayload records why an invocation stopped.
type InvocationFailedPayload struct {
	Flow     string `json:"flow"`
	Stage    string `json:"stage"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// NewInvocationFailed creates an InvocationFailed event.
func NewInvocationFailed(identifier string, p InvocationFailedPayload) (*BaseEvent, error) {
	return newEvent(identifier, TypeInvocationFailed, p)
}
