// Package notify publishes job lifecycle events to NATS JetStream so that
// downstream consumers (dashboards, door43 indexers) can follow conversions
// without polling the object store.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/eventstore"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = config.DefaultNotifySubject

// Message is the wire form of a published lifecycle event.
type Message struct {
	Identifier string          `json:"identifier"`
	Type       string          `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Notifier publishes lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event eventstore.Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Notify(context.Context, eventstore.Event) error { return nil }
func (Noop) Close() error                                   { return nil }

// MessageFor converts an event into its wire form.
func MessageFor(event eventstore.Event) Message {
	return Message{
		Identifier: event.Identifier(),
		Type:       event.Type(),
		Timestamp:  event.Timestamp().UTC(),
		Payload:    json.RawMessage(event.Payload()),
	}
}

// SubjectFor returns prefix.<type in snake case>, e.g.
// txbridge.lifecycle.job_submitted.
func SubjectFor(prefix, eventType string) string {
	if prefix == "" {
		prefix = DefaultSubject
	}
	var b strings.Builder
	for i, r := range eventType {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return prefix + "." + b.String()
}
