package pipeline

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run and step results in a dedicated registry. Runs are
// one-shot CLI invocations, so the registry is written to a textfile for
// node_exporter rather than served.
type Metrics struct {
	Registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	connectTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opspipe",
				Name:      "runs_total",
				Help:      "Total number of pipeline runs by task and result",
			},
			[]string{"task", "result"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opspipe",
				Name:      "steps_total",
				Help:      "Total number of executed steps by task, step and result",
			},
			[]string{"task", "step", "result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "opspipe",
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
			[]string{"task", "step"},
		),
		connectTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "opspipe",
				Name:      "connect_attempts_total",
				Help:      "Total number of connection attempts by task and result",
			},
			[]string{"task", "result"},
		),
	}
	m.Registry.MustRegister(m.runsTotal, m.stepsTotal, m.stepDuration, m.connectTotal)
	return m
}

// WriteTextfile writes the registry in text exposition format to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

func (m *Metrics) recordConnect(task string, err error) {
	if m == nil {
		return
	}
	m.connectTotal.WithLabelValues(task, resultLabel(err)).Inc()
}

func (m *Metrics) recordStep(task, step string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(task, step, resultLabel(err)).Inc()
	m.stepDuration.WithLabelValues(task, step).Observe(d.Seconds())
}

func (m *Metrics) recordRun(task string, status Status) {
	if m == nil {
		return
	}
	result := "success"
	if status != StatusSuccess {
		result = "failure"
	}
	m.runsTotal.WithLabelValues(task, result).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
