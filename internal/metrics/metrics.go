// Package metrics exports evaluation counters in the Prometheus format.
//
// A Collector is handed to the engine as its Recorder. The CLI runs one
// evaluation per process, so metrics are written to a node-exporter
// textfile instead of being served.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/lldsync/internal/engine"
)

const namespace = "lldsync"

// Evaluation results.
const (
	ResultOK       = "ok"
	ResultProblems = "problems"
	ResultError    = "error"
)

// Collector records evaluations on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	entities    *prometheus.CounterVec
	problems    *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Prototype evaluations by entity kind and result.",
		}, []string{"kind", "result"}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Entities and sub-records written, by kind and operation.",
		}, []string{"kind", "op"}),
		problems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "problems_total",
			Help:      "Row and entity problems by kind and code.",
		}, []string{"kind", "code"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Aborted evaluations by kind and error code.",
		}, []string{"kind", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of prototype evaluations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"kind"}),
	}

	c.registry.MustRegister(c.evaluations, c.entities, c.problems, c.failures, c.duration)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Record implements engine.Recorder.
func (c *Collector) Record(report *engine.Report, elapsed time.Duration, err error) {
	if report == nil {
		return
	}
	kind := string(report.Kind)
	c.duration.WithLabelValues(kind).Observe(elapsed.Seconds())

	if err != nil {
		code := "UNKNOWN"
		var ee *engine.EvaluationError
		if errors.As(err, &ee) {
			code = string(ee.Code)
		}
		c.failures.WithLabelValues(kind, code).Inc()
		c.evaluations.WithLabelValues(kind, ResultError).Inc()
		return
	}

	result := ResultOK
	if len(report.Problems) > 0 {
		result = ResultProblems
	}
	c.evaluations.WithLabelValues(kind, result).Inc()

	for op, n := range map[string]int{
		"created":      report.Created,
		"updated":      report.Updated,
		"sub_created":  report.SubCreated,
		"sub_updated":  report.SubUpdated,
		"sub_deleted":  report.SubDeleted,
		"tags_created": report.TagsCreated,
		"tags_updated": report.TagsUpdated,
		"tags_deleted": report.TagsDeleted,
	} {
		if n > 0 {
			c.entities.WithLabelValues(kind, op).Add(float64(n))
		}
	}
	for _, p := range report.Problems {
		c.problems.WithLabelValues(kind, string(p.Code)).Inc()
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
