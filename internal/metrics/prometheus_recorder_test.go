package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("fetch", 150*time.Millisecond)
	pr.IncStageResult("fetch", ResultSuccess)
	pr.ObserveInvocationDuration(FlowSubmit, 2*time.Second)
	pr.IncInvocationOutcome(FlowSubmit, ResultSuccess)
	pr.IncInvocationOutcome(FlowComplete, ResultFatal)
	pr.IncStrategy("usfm")
	pr.IncStrategy("usfm")
	pr.IncFetchRetry()

	assert.InDelta(t, 2, testutil.ToFloat64(pr.strategies.WithLabelValues("usfm")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.invocationOutcome.WithLabelValues("complete", "fatal")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.fetchRetries), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncStrategy("default")

	rr := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Result().Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `txbridge_strategy_selections_total{strategy="default"} 1`))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncStrategy("x")
		pr.ObserveStageDuration("x", time.Second)
	})
	var r Recorder = NoopRecorder{}
	r.IncFetchRetry()
}
