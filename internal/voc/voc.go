// Package voc implements the Voc/noise sampler component (C5): before a
// sweep begins, the panel is left at open circuit and CH0/CH1 are polled
// for VOC_POLLING_LOOPS iterations to estimate open-circuit voltage and
// the ambient CH1 noise floor, which together seed the sweep loop's tail
// condition and per-point discard threshold (§4.5, §4.8).
package voc

import "github.com/gr-butler/ivtracer/internal/adc"

// Reader is the two-channel read capability this component needs.
type Reader interface {
	Read(ch adc.Channel) (uint16, error)
}

// Result is the outcome of one Voc/noise sampling pass.
type Result struct {
	// Voc is the estimated open-circuit voltage: the mode of the sampled
	// CH0 readings, not their mean, so that a handful of noise spikes
	// cannot pull the estimate away from the panel's true resting value.
	Voc uint16
	// NoiseFloorMin is the minimum CH1 reading seen during polling: the
	// noise floor an idle current channel reads even with no true current
	// flowing (§3, §4.5).
	NoiseFloorMin uint16
	// NoiseFloorMax is the maximum CH1 reading seen, retained for
	// reporting only (§4.5).
	NoiseFloorMax uint16
	// DoneCh1 is max(2*noise_floor_min, 20): the current-side tail
	// threshold the sweep loop uses to decide it has reached the curve's
	// end (§4.8 step 5).
	DoneCh1 uint16
	// Connected is false when Voc falls below MinVocADC, meaning the
	// panel reads as open circuit even at rest — no module attached.
	Connected bool
}

// MinDoneCh1 is the floor on DoneCh1 regardless of how quiet the noise
// floor measures, per §4.5.
const MinDoneCh1 = 20

// Sample polls CH0 then CH1 for loops iterations and derives Voc and the
// CH1 noise floor. minVocADC is the MIN_VOC_ADC tunable: a Voc estimate
// below it means the panel isn't connected.
func Sample(r Reader, loops int, minVocADC uint16) (Result, error) {
	var table modeTable
	var lo, hi uint16
	first := true

	for n := 0; n < loops; n++ {
		v, err := r.Read(adc.Voltage)
		if err != nil {
			return Result{}, err
		}
		i, err := r.Read(adc.Current)
		if err != nil {
			return Result{}, err
		}
		table.add(v)
		if first {
			lo, hi = i, i
			first = false
			continue
		}
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}

	voc := table.mode()

	doneCh1 := uint16(2 * int(lo))
	if doneCh1 < MinDoneCh1 {
		doneCh1 = MinDoneCh1
	}

	connected := voc >= minVocADC
	if !connected {
		voc = 0
	}

	return Result{
		Voc:           voc,
		NoiseFloorMin: lo,
		NoiseFloorMax: hi,
		DoneCh1:       doneCh1,
		Connected:     connected,
	}, nil
}
