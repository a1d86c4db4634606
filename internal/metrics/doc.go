// Package metrics provides build observability for pepbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	app := host.New(host.Options{Recorder: metrics.NoopRecorder{}})
//
// PrometheusRecorder forwards to client_golang collectors; HTTPHandler
// exposes a registry for scraping (used by the watch command).
package metrics
