package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration   *prom.HistogramVec
	buildDuration   *prom.HistogramVec
	documentResults *prom.CounterVec
	buildOutcome    *prom.CounterVec
	workers         *prom.GaugeVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pepbuilder",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "pepbuilder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration by builder",
			Buckets:   prom.DefBuckets,
		}, []string{"builder"}),
		documentResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pepbuilder",
			Name:      "document_results_total",
			Help:      "Per-document results by stage and outcome",
		}, []string{"stage", "result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pepbuilder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		workers: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "pepbuilder",
			Name:      "stage_workers",
			Help:      "Worker concurrency used by the last run of a stage",
		}, []string{"stage"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.documentResults, pr.buildOutcome, pr.workers)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(builder string, d time.Duration) {
	p.buildDuration.WithLabelValues(builder).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDocumentResult(stage string, result ResultLabel) {
	p.documentResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetWorkerConcurrency(stage string, n int) {
	p.workers.WithLabelValues(stage).Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
