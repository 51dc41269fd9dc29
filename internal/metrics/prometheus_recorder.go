package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "txbridge"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	stageResults       *prom.CounterVec
	invocationDuration *prom.HistogramVec
	invocationOutcome  *prom.CounterVec
	strategies         *prom.CounterVec
	fetchRetries       prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual invocation stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		invocationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "invocation_duration_seconds",
			Help:      "Total duration of webhook and callback invocations",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"flow"}),
		invocationOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "invocation_outcomes_total",
			Help:      "Invocation outcomes by flow and result",
		}, []string{"flow", "result"}),
		strategies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_selections_total",
			Help:      "Preprocessing strategies selected by the dispatcher",
		}, []string{"strategy"}),
		fetchRetries: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Archive download retries after transient failures",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.invocationDuration,
		pr.invocationOutcome, pr.strategies, pr.fetchRetries)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveInvocationDuration(flow Flow, d time.Duration) {
	if p == nil {
		return
	}
	p.invocationDuration.WithLabelValues(string(flow)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncInvocationOutcome(flow Flow, outcome ResultLabel) {
	if p == nil {
		return
	}
	p.invocationOutcome.WithLabelValues(string(flow), string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncStrategy(name string) {
	if p == nil {
		return
	}
	p.strategies.WithLabelValues(name).Inc()
}

func (p *PrometheusRecorder) IncFetchRetry() {
	if p == nil {
		return
	}
	p.fetchRetries.Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
