package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/state"
)

// MaxBodyBytes bounds webhook and callback request bodies.
const MaxBodyBytes = 10 << 20

// Runner executes the two bridge flows.
type Runner interface {
	Submit(ctx context.Context, body []byte) (*state.BuildLog, error)
	Complete(ctx context.Context, body []byte) (*state.BuildLog, error)
}

// BridgeHandlers serves the webhook and callback entry points.
type BridgeHandlers struct {
	runner       Runner
	errorAdapter *errors.HTTPErrorAdapter
	active       atomic.Int64
}

// NewBridgeHandlers creates the entry point handlers.
func NewBridgeHandlers(runner Runner) *BridgeHandlers {
	return &BridgeHandlers{
		runner:       runner,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// ActiveInvocations reports how many flows are running.
func (h *BridgeHandlers) ActiveInvocations() int64 {
	return h.active.Load()
}

// HandleWebhook runs the submission flow for a forge push.
func (h *BridgeHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.runner.Submit)
}

// HandleCallback runs the completion flow for a conversion service callback.
func (h *BridgeHandlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.runner.Complete)
}

func (h *BridgeHandlers) serve(w http.ResponseWriter, r *http.Request, flow func(context.Context, []byte) (*state.BuildLog, error)) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("failed to read request body").
			WithCause(err).
			Build())
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)

	log, err := flow(r.Context(), body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, log); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to write build log response").Build())
	}
}
