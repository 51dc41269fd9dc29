// Package metrics records bridge invocation metrics.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be left unconfigured without nil checks:
//
//	runner := pipeline.NewRunner(tx, stores, fetcher, dispatcher, workspaces) // NoopRecorder
//	runner := pipeline.NewRunner(tx, stores, fetcher, dispatcher, workspaces,
//		pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation registers under the "txbridge" namespace and
// is served by HTTPHandler on the admin listener.
package metrics
