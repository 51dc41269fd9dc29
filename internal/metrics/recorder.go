package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Flow names the two bridge entry points.
type Flow string

const (
	FlowSubmit   Flow = "submit"
	FlowComplete Flow = "complete"
)

// Recorder defines observability hooks for invocations and their stages.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveInvocationDuration(flow Flow, d time.Duration)
	IncInvocationOutcome(flow Flow, outcome ResultLabel)
	IncStrategy(name string)
	IncFetchRetry()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)    {}
func (NoopRecorder) IncStageResult(string, ResultLabel)            {}
func (NoopRecorder) ObserveInvocationDuration(Flow, time.Duration) {}
func (NoopRecorder) IncInvocationOutcome(Flow, ResultLabel)        {}
func (NoopRecorder) IncStrategy(string)                            {}
func (NoopRecorder) IncFetchRetry()                                {}
