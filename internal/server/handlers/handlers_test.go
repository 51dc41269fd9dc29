package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/server/responses"
	"git.home.luguber.info/inful/txbridge/internal/state"
	"git.home.luguber.info/inful/txbridge/internal/txjob"
)

type fakeRunner struct {
	body []byte
	err  error
}

func (f *fakeRunner) Submit(_ context.Context, body []byte) (*state.BuildLog, error) {
	f.body = body
	if f.err != nil {
		return nil, f.err
	}
	log := &state.BuildLog{Job: txjob.Job{Identifier: "o/r/c", Status: "requested"}, RepoName: "r"}
	log.Normalize()
	return log, nil
}

func (f *fakeRunner) Complete(ctx context.Context, body []byte) (*state.BuildLog, error) {
	return f.Submit(ctx, body)
}

func TestBridgeHandlers_Success(t *testing.T) {
	runner := &fakeRunner{}
	h := NewBridgeHandlers(runner)

	for _, handle := range []http.HandlerFunc{h.HandleWebhook, h.HandleCallback} {
		rr := httptest.NewRecorder()
		handle(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"data":{}}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `{"data":{}}`, string(runner.body))
		var got map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, "o/r/c", got["identifier"])
		assert.Equal(t, []any{}, got["log"])
	}
	assert.Zero(t, h.ActiveInvocations())
}

func TestBridgeHandlers_PipelineFailureIsBadRequest(t *testing.T) {
	h := NewBridgeHandlers(&fakeRunner{err: errors.RemoteError("unsupported resource").Build()})
	rr := httptest.NewRecorder()
	h.HandleWebhook(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body errors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Bad Request: unsupported resource", body.Error)
}

func TestBridgeHandlers_RejectsGet(t *testing.T) {
	h := NewBridgeHandlers(&fakeRunner{})
	rr := httptest.NewRecorder()
	h.HandleCallback(rr, httptest.NewRequest(http.MethodGet, "/client/callback", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestMonitoringHandlers(t *testing.T) {
	h := NewMonitoringHandlers(NewBridgeHandlers(&fakeRunner{}))

	rr := httptest.NewRecorder()
	h.HandleHealthCheck(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var health responses.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)

	rr = httptest.NewRecorder()
	h.HandleVersion(rr, httptest.NewRequest(http.MethodGet, "/version?pretty=1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "\n  \"version\"")
}

func TestEventHandlers(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	journal := eventstore.NewJournal(store, eventstore.NewJobHistoryProjection(store, 10))

	ev, err := eventstore.NewJobSubmitted("o/r/c", eventstore.JobSubmittedPayload{JobID: "j1", Status: "requested"})
	require.NoError(t, err)
	journal.Record(t.Context(), ev)

	h := NewEventHandlers(journal)

	rr := httptest.NewRecorder()
	h.HandleEvents(rr, httptest.NewRequest(http.MethodGet, "/events?identifier=o/r/c", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp responses.EventsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, eventstore.TypeJobSubmitted, resp.Events[0].Type)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, "j1", resp.Summary.JobID)

	rr = httptest.NewRecorder()
	h.HandleEvents(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var history responses.HistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	assert.Equal(t, 1, history.TrackedCount)

	rr = httptest.NewRecorder()
	NewEventHandlers(nil).HandleEvents(rr, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
