// Package isc implements the Isc stabilizer component (C6): once the
// relay sequencer has armed a controlled short, this component waits for
// the short itself to settle, releases it onto the capacitor, then polls
// CH1/CH0 until three consecutive readings satisfy a stability predicate,
// at which point the earliest of the three is taken as Isc (§4.6, §4.8,
// §8 scenario 4).
package isc

import "github.com/gr-butler/ivtracer/internal/adc"

// Reader is the two-channel read capability this component needs.
type Reader interface {
	Read(ch adc.Channel) (uint16, error)
}

// Releaser is the one relay capability the stabilizer drives directly: once
// the short has settled, it is released so the capacitor begins charging
// (§4.2, §4.6). Satisfied by *relay.Sequencer.
type Releaser interface {
	ReleaseToCapacitor()
}

// windowSize is the sliding-window width the stability predicate evaluates.
const windowSize = 3

// settleReadsRequired is how many consecutive unchanged CH0 reads must be
// observed before the short is released. Trivially satisfied after three
// reads on a steady (e.g. EMR) line; on a slow-turning-on SSR it defers
// release until the switch has actually settled (§4.6).
const settleReadsRequired = 3

// sample is one (voltage, current) reading pair.
type sample struct {
	voltage uint16
	current uint16
}

// Result is the outcome of one Isc stabilization pass.
type Result struct {
	Isc          uint16
	PollTimedOut bool
	Iterations   int
	// Point0Voltage/Point0Current is the last-read (CH0,CH1) pair, which
	// becomes retained point 0 of the curve (§3, §4.6).
	Point0Voltage uint16
	Point0Current uint16
}

// Stabilize waits for the short to settle, releases it, then polls CH1
// then CH0 until the last windowSize readings satisfy stable, or until
// maxPoll readings have been taken. minIscADCEffective is
// MIN_ISC_ADC + noise_floor_min (§3 invariant 5).
//
// A negative maxPoll is the debug bypass (§4.6): the settle wait and
// stability predicate are both skipped; CH1 is polled until any non-zero
// reading, the short is released immediately, and that reading is used
// directly with poll_timeout set, forcing a timeout-like single-point
// sweep.
func Stabilize(r Reader, rel Releaser, maxPoll int, stableTolerance, minIscADCEffective uint16) (Result, error) {
	if maxPoll < 0 {
		for {
			cur, err := r.Read(adc.Current)
			if err != nil {
				return Result{}, err
			}
			if cur != 0 {
				v, err := r.Read(adc.Voltage)
				if err != nil {
					return Result{}, err
				}
				rel.ReleaseToCapacitor()
				return Result{
					Isc:           cur,
					PollTimedOut:  true,
					Iterations:    1,
					Point0Voltage: v,
					Point0Current: cur,
				}, nil
			}
		}
	}

	if err := awaitVoltageSettled(r, maxPoll); err != nil {
		return Result{}, err
	}
	rel.ReleaseToCapacitor()

	var window [windowSize]sample
	filled := 0
	var last sample

	for it := 0; it < maxPoll; it++ {
		s, err := readSample(r)
		if err != nil {
			return Result{}, err
		}
		last = s

		if filled == windowSize && s.voltage < window[windowSize-1].voltage {
			// Voltage bounce: overwrite the most recent sample instead of
			// shifting the window, preserving prev_prev (§4.6).
			window[windowSize-1] = s
		} else {
			window[0], window[1], window[2] = window[1], window[2], s
			if filled < windowSize {
				filled++
			}
		}

		if filled == windowSize && stable(window, stableTolerance, minIscADCEffective) {
			return Result{
				Isc:           window[0].current,
				PollTimedOut:  false,
				Iterations:    it + 1,
				Point0Voltage: last.voltage,
				Point0Current: last.current,
			}, nil
		}
	}

	return Result{
		Isc:           window[windowSize-1].current,
		PollTimedOut:  true,
		Iterations:    maxPoll,
		Point0Voltage: last.voltage,
		Point0Current: last.current,
	}, nil
}

// readSample reads CH1 then CH0, matching the poll order §4.6 specifies.
func readSample(r Reader) (sample, error) {
	cur, err := r.Read(adc.Current)
	if err != nil {
		return sample{}, err
	}
	v, err := r.Read(adc.Voltage)
	if err != nil {
		return sample{}, err
	}
	return sample{voltage: v, current: cur}, nil
}

// awaitVoltageSettled polls CH0 until settleReadsRequired consecutive reads
// agree, deferring the short's release until a slow-turning SSR has
// actually finished switching (§4.6). On a steady line this is trivially
// satisfied after settleReadsRequired reads. Bounded by maxPoll so a line
// that never settles still lets the caller proceed.
func awaitVoltageSettled(r Reader, maxPoll int) error {
	var last uint16
	run := 0
	for it := 0; it < maxPoll; it++ {
		v, err := r.Read(adc.Voltage)
		if err != nil {
			return err
		}
		if it > 0 && v == last {
			run++
		} else {
			run = 1
		}
		last = v
		if run >= settleReadsRequired {
			return nil
		}
	}
	return nil
}

// stable is the five-part predicate a window of readings must satisfy
// before Isc is considered settled (§4.6):
//  1. the most recent current exceeds the effective noise floor,
//  2. voltages are non-decreasing across the window,
//  3. currents are non-increasing across the window,
//  4. prev and cur currents agree within tolerance,
//  5. prev_prev and prev currents agree within tolerance.
func stable(w [windowSize]sample, tolerance, minIscADCEffective uint16) bool {
	return w[2].current > minIscADCEffective &&
		w[0].voltage <= w[1].voltage && w[1].voltage <= w[2].voltage &&
		w[0].current >= w[1].current && w[1].current >= w[2].current &&
		absDiff(w[1].current, w[2].current) <= tolerance &&
		absDiff(w[0].current, w[1].current) <= tolerance
}

func absDiff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}
