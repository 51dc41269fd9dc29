package handlers

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/txbridge/internal/eventstore"
	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/server/responses"
)

// EventHandlers serves the lifecycle audit log.
type EventHandlers struct {
	journal      *eventstore.Journal
	errorAdapter *errors.HTTPErrorAdapter
}

// NewEventHandlers creates event handlers. A nil journal reports 404.
func NewEventHandlers(journal *eventstore.Journal) *EventHandlers {
	return &EventHandlers{journal: journal, errorAdapter: errors.NewHTTPErrorAdapter(slog.Default())}
}

// HandleEvents returns the events of ?identifier=, or the recent job history
// when no identifier is given.
func (h *EventHandlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}
	if h.journal == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "event log is disabled").Build())
		return
	}

	identifier := r.URL.Query().Get("identifier")
	if identifier == "" {
		h.writeHistory(w, r)
		return
	}

	events, err := h.journal.Events(r.Context(), identifier)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.EventStoreError("failed to read events").
			WithCause(err).
			WithContext("identifier", identifier).
			Build())
		return
	}
	resp := responses.EventsResponse{Identifier: identifier, Events: make([]responses.EventView, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, responses.EventView{
			Type:      e.Type(),
			Timestamp: e.Timestamp().UTC(),
			Payload:   e.Payload(),
			Metadata:  e.Metadata(),
		})
	}
	if p := h.journal.Projection(); p != nil {
		if summary, ok := p.GetJob(identifier); ok {
			resp.Summary = &summary
		}
	}
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}

func (h *EventHandlers) writeHistory(w http.ResponseWriter, r *http.Request) {
	p := h.journal.Projection()
	resp := responses.HistoryResponse{Jobs: []eventstore.JobSummary{}}
	if p != nil {
		resp.Jobs = p.GetHistory()
		resp.LastRebuilt = p.LastSyncTime()
	}
	resp.TrackedCount = len(resp.Jobs)
	_ = writeJSONPretty(w, r, http.StatusOK, resp)
}
