package ide

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks context lifecycle Prometheus metrics.
//
// All metrics use the idecore_context_ prefix. A nil *Metrics is valid and
// records nothing, so contexts created without a registerer pay no cost.
type Metrics struct {
	// StepDuration tracks bring-up and shutdown step latency
	StepDuration *prometheus.HistogramVec

	// StepFailures counts failed steps by sequence and step
	StepFailures *prometheus.CounterVec

	// Holds tracks the current hold count across contexts
	Holds prometheus.Gauge

	// UnloadsTotal counts completed unloads
	UnloadsTotal prometheus.Counter

	// BufferSaveFailures counts buffers that could not be saved on unload
	BufferSaveFailures prometheus.Counter

	// RestoredFiles counts unsaved files replayed into the buffer manager
	RestoredFiles prometheus.Counter
}

// NewMetrics creates lifecycle metrics and registers them with reg.
// Panics if registration fails.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idecore_context_step_duration_seconds",
				Help:    "Duration of context bring-up and shutdown steps in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sequence", "step"},
		),
		StepFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idecore_context_step_failures_total",
				Help: "Total failed context steps by sequence and step",
			},
			[]string{"sequence", "step"},
		),
		Holds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "idecore_context_holds",
				Help: "Current number of holds preventing context unload",
			},
		),
		UnloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idecore_context_unloads_total",
				Help: "Total completed context unloads",
			},
		),
		BufferSaveFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idecore_context_buffer_save_failures_total",
				Help: "Total buffers that failed to save during unload",
			},
		),
		RestoredFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "idecore_context_restored_files_total",
				Help: "Total unsaved files restored into buffers",
			},
		),
	}

	reg.MustRegister(
		m.StepDuration,
		m.StepFailures,
		m.Holds,
		m.UnloadsTotal,
		m.BufferSaveFailures,
		m.RestoredFiles,
	)

	return m
}

// StepStarted implements sequencer.Observer.
func (m *Metrics) StepStarted(sequence, step string) {}

// StepFinished implements sequencer.Observer.
func (m *Metrics) StepFinished(sequence, step string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(sequence, step).Observe(elapsed.Seconds())
	if err != nil {
		m.StepFailures.WithLabelValues(sequence, step).Inc()
	}
}

func (m *Metrics) holdChanged(delta int) {
	if m == nil {
		return
	}
	m.Holds.Add(float64(delta))
}

func (m *Metrics) unloaded() {
	if m == nil {
		return
	}
	m.UnloadsTotal.Inc()
}

func (m *Metrics) bufferSaveFailed() {
	if m == nil {
		return
	}
	m.BufferSaveFailures.Inc()
}

func (m *Metrics) restored(n int) {
	if m == nil {
		return
	}
	m.RestoredFiles.Add(float64(n))
}
