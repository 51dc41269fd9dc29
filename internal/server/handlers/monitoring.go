package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/txbridge/internal/foundation/errors"
	"git.home.luguber.info/inful/txbridge/internal/server/responses"
	"git.home.luguber.info/inful/txbridge/internal/version"
)

// ActivityReporter reports in-flight invocations.
type ActivityReporter interface {
	ActiveInvocations() int64
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	activity     ActivityReporter
	started      time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(activity ActivityReporter) *MonitoringHandlers {
	return &MonitoringHandlers{
		activity:     activity,
		started:      time.Now(),
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}

	health := &responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.started).Seconds(),
	}
	if h.activity != nil {
		health.ActiveInvocations = h.activity.ActiveInvocations()
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// HandleVersion serves the build metadata.
func (h *MonitoringHandlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(h.errorAdapter, w, r, http.MethodGet) {
		return
	}
	if err := writeJSONPretty(w, r, http.StatusOK, version.Get()); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to write version response").Build())
	}
}
