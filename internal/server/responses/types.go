// Package responses defines the JSON bodies of the txbridge admin endpoints.
package responses

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/eventstore"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
	Version           string    `json:"version"`
	Uptime            float64   `json:"uptime"`
	ActiveInvocations int64     `json:"active_invocations"`
}

// EventView is one stored lifecycle event.
type EventView struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventsResponse is the lifecycle of one identifier.
type EventsResponse struct {
	Identifier string                 `json:"identifier"`
	Summary    *eventstore.JobSummary `json:"summary,omitempty"`
	Events     []EventView            `json:"events"`
}

// HistoryResponse lists recently seen jobs.
type HistoryResponse struct {
	Jobs         []eventstore.JobSummary `json:"jobs"`
	LastRebuilt  time.Time               `json:"last_rebuilt,omitempty"`
	TrackedCount int                     `json:"tracked_count"`
}
