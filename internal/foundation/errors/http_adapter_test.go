package errors

import (
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: http.StatusOK},
		{name: "configuration missing", err: ConfigError("cdn_bucket not found").Build(), expected: http.StatusBadRequest},
		{name: "unresolvable manifest", err: ManifestError("no format").Build(), expected: http.StatusBadRequest},
		{name: "fetch failed", err: FetchError("timeout").Build(), expected: http.StatusBadRequest},
		{name: "remote submission failed", err: RemoteError("boom").Build(), expected: http.StatusBadRequest},
		{name: "storage write failed", err: StorageError("denied").Build(), expected: http.StatusBadRequest},
		{name: "internal", err: InternalError("bug").Build(), expected: http.StatusInternalServerError},
		{name: "unclassified error", err: stdErrors.New("unknown"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.StatusCodeFor(tt.err))
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	rr := httptest.NewRecorder()

	err := RemoteError("Conversion service unavailable").
		WithCause(stdErrors.New("dial tcp: secret internal detail")).
		Build()
	adapter.WriteErrorResponse(rr, req, err)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Bad Request: Conversion service unavailable", body.Error)
	assert.Equal(t, "remote", body.Code)
	assert.NotContains(t, rr.Body.String(), "secret internal detail")
}

func TestHTTPErrorAdapter_UnclassifiedHidesDetail(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)
	resp := adapter.FormatErrorResponse(stdErrors.New("stack detail"))
	assert.Equal(t, "internal error", resp.Error)
}
