// Package metrics defines the observation hooks the validation
// middleware and reload machinery report into. The validation engine
// itself never touches these; all counters live out here.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives validation observations. Implementations must be
// safe for concurrent use.
type Recorder interface {
	// ObserveValidation records one engine call. direction is "request"
	// or "response"; result is "pass", "fail", "governance", or "error".
	ObserveValidation(direction, result string, duration time.Duration)

	// ObserveFindings records the finding count of a failed validation.
	// kind is "functional" or "governance".
	ObserveFindings(direction, kind string, count int)

	// ObserveReload records a contract reload attempt. result is "ok" or
	// "error".
	ObserveReload(result string)
}

// Prometheus is a Recorder backed by Prometheus collectors.
type Prometheus struct {
	validations *prometheus.CounterVec
	findings    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	reloads     *prometheus.CounterVec
}

// NewPrometheus creates and registers the collectors with the given
// registry.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	return &Prometheus{
		validations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiwarden",
				Name:      "validations_total",
				Help:      "Total validation engine calls",
			},
			[]string{"direction", "result"},
		),
		findings: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiwarden",
				Name:      "findings_total",
				Help:      "Total findings reported by failed validations",
			},
			[]string{"direction", "kind"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "apiwarden",
				Name:      "validation_duration_seconds",
				Help:      "Validation engine call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"direction"},
		),
		reloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiwarden",
				Name:      "reloads_total",
				Help:      "Total contract reload attempts",
			},
			[]string{"result"},
		),
	}
}

// ObserveValidation implements Recorder.
func (p *Prometheus) ObserveValidation(direction, result string, duration time.Duration) {
	p.validations.WithLabelValues(direction, result).Inc()
	p.duration.WithLabelValues(direction).Observe(duration.Seconds())
}

// ObserveFindings implements Recorder.
func (p *Prometheus) ObserveFindings(direction, kind string, count int) {
	p.findings.WithLabelValues(direction, kind).Add(float64(count))
}

// ObserveReload implements Recorder.
func (p *Prometheus) ObserveReload(result string) {
	p.reloads.WithLabelValues(result).Inc()
}

// Nop is a Recorder that discards every observation.
type Nop struct{}

// ObserveValidation implements Recorder.
func (Nop) ObserveValidation(string, string, time.Duration) {}

// ObserveFindings implements Recorder.
func (Nop) ObserveFindings(string, string, int) {}

// ObserveReload implements Recorder.
func (Nop) ObserveReload(string) {}
