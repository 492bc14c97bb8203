// Package metrics exports workflow and run counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
)

const namespace = "email_automation"

// Recorder implements the run and node observers on its own registry
type Recorder struct {
	registry        *prometheus.Registry
	runsTotal       *prometheus.CounterVec
	processedEmails *prometheus.CounterVec
	draftsCreated   *prometheus.CounterVec
	abandonedEmails *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	nodeExecutions  *prometheus.CounterVec
}

// NewRecorder creates a recorder with Go and process collectors registered
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of workflow runs by service and status",
			},
			[]string{"service", "status"},
		),
		processedEmails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processed_emails_total",
				Help:      "Total number of emails loaded for processing",
			},
			[]string{"service"},
		),
		draftsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "drafts_created_total",
				Help:      "Total number of replies drafted or sent",
			},
			[]string{"service"},
		),
		abandonedEmails: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "abandoned_emails_total",
				Help:      "Total number of emails dropped after exhausting rewrite trials",
			},
			[]string{"service"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of workflow runs in seconds",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"service"},
		),
		nodeExecutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of workflow node executions",
			},
			[]string{"node"},
		),
	}
}

// ObserveRun records the outcome of a finished run
func (r *Recorder) ObserveRun(service, status string, stats *core.RunStats, duration time.Duration) {
	r.runsTotal.WithLabelValues(service, status).Inc()
	r.runDuration.WithLabelValues(service).Observe(duration.Seconds())
	if stats != nil {
		r.processedEmails.WithLabelValues(service).Add(float64(stats.ProcessedEmails))
		r.draftsCreated.WithLabelValues(service).Add(float64(stats.DraftsCreated))
		r.abandonedEmails.WithLabelValues(service).Add(float64(stats.Abandoned))
	}
}

// ObserveNode counts one execution of a workflow node
func (r *Recorder) ObserveNode(node string) {
	r.nodeExecutions.WithLabelValues(node).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
