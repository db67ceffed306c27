// Package report implements the report emitter component (C9): it turns a
// completed sweep into the deterministic line-oriented result the host
// messenger sends back, and fans the same result out to whichever
// telemetry sinks are configured.
//
// The fan-out shape is grounded directly on the teacher's reporting.go and
// main.go, which call a fixed sequence of independent report functions
// (Prometheus gauges, then the Met Office WOW push, then MQTT) one after
// another over the same reading, logging and continuing past a failure in
// any one of them rather than letting it block the others.
package report

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Point is one retained (voltage, current) pair, decoupled from
// internal/sweep.Curve's fixed-size array so this package never needs to
// know the sweep loop's compile-time point-count ceiling.
type Point struct {
	V, I int16
}

// SweepReport is everything a sink needs to describe one completed sweep.
type SweepReport struct {
	Isc, Voc       uint16
	VScale, IScale int16
	Points         []Point

	// NoiseFloorMin/NoiseFloorMax are CH1's min/max across Voc polling
	// (§4.5), reported alongside Voc in the point stream.
	NoiseFloorMin uint16
	NoiseFloorMax uint16

	// IscPollLoops is the number of Isc-stabilization iterations C6 ran.
	IscPollLoops int
	// MinManhattan is the Manhattan-distance discard threshold C8 computed
	// for this sweep.
	MinManhattan int16

	NumMeas      int
	ElapsedUsecs int64
}

// Lines renders a report as the host protocol's deterministic output
// (§4.9): the CH1 noise floor, the Isc summary line, one line per retained
// point, the Voc summary line, then the diagnostic tallies and the
// terminator, in that fixed order.
func Lines(r SweepReport) []string {
	lines := make([]string, 0, len(r.Points)+10)

	lines = append(lines, fmt.Sprintf("CH1 ADC noise floor (min/max) %d/%d", r.NoiseFloorMin, r.NoiseFloorMax))
	lines = append(lines, fmt.Sprintf("Isc CH0:0 CH1:%d", r.Isc))

	for i, p := range r.Points {
		lines = append(lines, fmt.Sprintf("%d CH0:%d CH1:%d", i, p.V, p.I))
	}

	lines = append(lines, fmt.Sprintf("Voc CH0:%d CH1:%d", r.Voc, r.NoiseFloorMin))

	usecPerReading := int64(0)
	if r.NumMeas > 0 {
		usecPerReading = r.ElapsedUsecs / int64(r.NumMeas)
	}
	lines = append(lines, fmt.Sprintf("Isc poll loops %d", r.IscPollLoops))
	lines = append(lines, fmt.Sprintf("Number of measurements %d", r.NumMeas))
	lines = append(lines, fmt.Sprintf("Number of recorded points %d", len(r.Points)))
	lines = append(lines, fmt.Sprintf("i_scale %d", r.IScale))
	lines = append(lines, fmt.Sprintf("v_scale %d", r.VScale))
	lines = append(lines, fmt.Sprintf("min_manhattan_distance %d", r.MinManhattan))
	lines = append(lines, fmt.Sprintf("Elapsed usecs %d", r.ElapsedUsecs))
	lines = append(lines, fmt.Sprintf("Time (usecs) per i/v reading %d", usecPerReading))
	lines = append(lines, "Output complete")

	return lines
}

// Observer is one telemetry sink's subscription to completed sweeps.
// Implemented by internal/telemetry/{prom,mqtt,webhook,history}.
type Observer interface {
	Observe(r SweepReport) error
}

// Fanout holds a fixed set of observers and notifies all of them for every
// report, logging (not propagating) any individual observer's failure so
// one broken sink — an unreachable MQTT broker, say — never prevents the
// others from seeing the result.
type Fanout struct {
	observers []Observer
}

// NewFanout builds a Fanout over the given observers, in the order they
// should be notified.
func NewFanout(observers ...Observer) *Fanout {
	return &Fanout{observers: observers}
}

// Observe notifies every registered observer in registration order.
func (f *Fanout) Observe(r SweepReport) {
	for _, o := range f.observers {
		if err := o.Observe(r); err != nil {
			logger.Errorf("report: observer failed: %v", err)
		}
	}
}

// Summary renders a short single-line description of a report, the way
// the teacher's logging calls summarize a reading before the full report
// goes out (reporting.go's log.Infof calls).
func Summary(r SweepReport) string {
	return strings.TrimSpace(fmt.Sprintf("isc=%d voc=%d pts=%d meas=%d", r.Isc, r.Voc, len(r.Points), r.NumMeas))
}
