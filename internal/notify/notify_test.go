package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/config"
	"git.home.luguber.info/inful/txbridge/internal/eventstore"
)

type fakePublisher struct {
	subjects []string
	data     [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	f.data = append(f.data, data)
	return &jetstream.PubAck{Stream: StreamName}, nil
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "txbridge.lifecycle.job_submitted", SubjectFor("", eventstore.TypeJobSubmitted))
	assert.Equal(t, "tx.completion_recorded", SubjectFor("tx", eventstore.TypeCompletionRecorded))
}

func TestNATSNotifier_Notify(t *testing.T) {
	pub := &fakePublisher{}
	n := &NATSNotifier{js: pub, subject: "tx", timeout: time.Second}

	ev, err := eventstore.NewJobSubmitted("o/r/abc", eventstore.JobSubmittedPayload{JobID: "j1", Status: "requested"})
	require.NoError(t, err)
	require.NoError(t, n.Notify(t.Context(), ev))

	require.Equal(t, []string{"tx.job_submitted"}, pub.subjects)
	var msg Message
	require.NoError(t, json.Unmarshal(pub.data[0], &msg))
	assert.Equal(t, "o/r/abc", msg.Identifier)
	assert.Equal(t, eventstore.TypeJobSubmitted, msg.Type)
	assert.JSONEq(t, `{"job_id":"j1","status":"requested","archive_key":"","source":""}`, string(msg.Payload))
}

func TestNATSNotifier_PublishError(t *testing.T) {
	n := &NATSNotifier{js: &fakePublisher{err: errors.New("no responders")}, subject: "tx", timeout: time.Second}
	ev, err := eventstore.NewInvocationFailed("o/r/abc", eventstore.InvocationFailedPayload{Flow: "submit"})
	require.NoError(t, err)
	assert.ErrorContains(t, n.Notify(t.Context(), ev), "no responders")
}

func TestNewNATSNotifier_Disabled(t *testing.T) {
	_, err := NewNATSNotifier(t.Context(), configDisabled())
	assert.Error(t, err)
}

func configDisabled() config.NotifyConfig { return config.NotifyConfig{} }
