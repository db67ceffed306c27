// Package prom implements a report.Observer that mirrors each completed
// sweep onto a fixed set of Prometheus gauges, grounded directly on the
// teacher's main.go Prom_* gauge declarations and its
// prometheus.MustRegister call at startup.
package prom

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gr-butler/ivtracer/internal/report"
)

// Sink owns the gauges this package exposes and registers them with a
// dedicated registry, so a caller embedding this sink inside a larger
// process can still use prometheus.DefaultRegisterer for its own metrics
// without collision.
type Sink struct {
	registry *prometheus.Registry

	isc          prometheus.Gauge
	voc          prometheus.Gauge
	points       prometheus.Gauge
	measurements prometheus.Gauge
	elapsedUsecs prometheus.Gauge
	sweeps       prometheus.Counter
}

// NewSink builds and registers the gauges this sink reports.
func NewSink() *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		isc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivtracer_isc_adc_counts",
			Help: "Measured short-circuit current, in raw ADC counts.",
		}),
		voc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivtracer_voc_adc_counts",
			Help: "Measured open-circuit voltage, in raw ADC counts.",
		}),
		points: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivtracer_curve_points",
			Help: "Number of retained points in the last sweep.",
		}),
		measurements: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivtracer_curve_measurements",
			Help: "Number of ADC measurement pairs taken during the last sweep.",
		}),
		elapsedUsecs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ivtracer_sweep_elapsed_usec",
			Help: "Wall-clock duration of the last sweep loop, in microseconds.",
		}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ivtracer_sweeps_total",
			Help: "Total number of completed sweeps.",
		}),
	}
	s.registry.MustRegister(s.isc, s.voc, s.points, s.measurements, s.elapsedUsecs, s.sweeps)
	return s
}

// Observe satisfies report.Observer.
func (s *Sink) Observe(r report.SweepReport) error {
	s.isc.Set(float64(r.Isc))
	s.voc.Set(float64(r.Voc))
	s.points.Set(float64(len(r.Points)))
	s.measurements.Set(float64(r.NumMeas))
	s.elapsedUsecs.Set(float64(r.ElapsedUsecs))
	s.sweeps.Inc()
	return nil
}

// Handler returns the /metrics endpoint for this sink's registry, the way
// the teacher's main.go wires promhttp.Handler() onto "/metrics".
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
