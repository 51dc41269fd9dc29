package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/logfields"
)

// StreamName is the JetStream stream that captures lifecycle subjects.
const StreamName = "TXBRIDGE_JOBS"

// publisher is the subset of jetstream.JetStream the notifier uses.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSNotifier publishes lifecycle events to a JetStream stream.
type NATSNotifier struct {
	conn    *nats.Conn
	js      publisher
	subject string
	timeout time.Duration
}

// NewNATSNotifier connects to NATS and ensures the lifecycle stream exists.
func NewNATSNotifier(ctx context.Context, cfg config.NotifyConfig) (*NATSNotifier, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("notifications are disabled")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(cfg.NATSURL, nats.Name("txbridge"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "tX bridge job lifecycle events",
		Subjects:    []string{subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	slog.Info("NATS notifier initialized",
		logfields.URL(cfg.NATSURL),
		slog.String("subject", subject))

	return &NATSNotifier{conn: conn, js: js, subject: subject, timeout: 5 * time.Second}, nil
}

// Notify publishes event on its type subject.
func (n *NATSNotifier) Notify(ctx context.Context, event eventstore.Event) error {
	data, err := json.Marshal(MessageFor(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	subject := SubjectFor(n.subject, event.Type())
	if _, err := n.js.Publish(pctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published lifecycle event",
		logfields.Identifier(event.Identifier()),
		slog.String("subject", subject))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
