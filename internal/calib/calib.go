// Package calib implements the SSR current calibration operation
// (DO_SSR_CURR_CAL, §4.11): with the short-circuit path held closed, the
// current channel is sampled repeatedly over a fixed window to establish
// the ADC's baseline count for a known short — the offset every later Isc
// reading on this unit should be corrected against.
package calib

import (
	"time"

	"github.com/gr-butler/ivtracer/internal/adc"
	"github.com/gr-butler/ivtracer/internal/config"
)

// DefaultDuration / DefaultInterval are the calibration window and sample
// spacing (§6, config.SSRCalUSecs / config.SSRCalRDUSecs).
const (
	DefaultDuration = config.SSRCalUSecs * time.Microsecond
	DefaultInterval = config.SSRCalRDUSecs * time.Microsecond
)

// Reader is the single-channel read capability this component needs.
type Reader interface {
	Read(ch adc.Channel) (uint16, error)
}

// Sleeper paces sampling in production; tests supply a no-op so a
// calibration run doesn't actually block for real wall-clock time.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper sleeps for real, used in production.
type RealSleeper struct{}

func (RealSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Result is the outcome of one calibration run.
type Result struct {
	Samples    int
	MeanCounts float64
	MinCounts  uint16
	MaxCounts  uint16
}

// Run samples CH1 every interval for the given duration and returns the
// mean, min, and max observed count. The caller is responsible for having
// already armed the short via the relay sequencer before calling Run, and
// for releasing it afterward — this component only measures.
func Run(r Reader, s Sleeper, duration, interval time.Duration) (Result, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	n := int(duration / interval)
	if n < 1 {
		n = 1
	}

	var sum float64
	var min, max uint16
	first := true

	for i := 0; i < n; i++ {
		v, err := r.Read(adc.Current)
		if err != nil {
			return Result{}, err
		}
		sum += float64(v)
		if first {
			min, max = v, v
			first = false
		} else {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		if i < n-1 {
			s.Sleep(interval)
		}
	}

	return Result{
		Samples:    n,
		MeanCounts: sum / float64(n),
		MinCounts:  min,
		MaxCounts:  max,
	}, nil
}
