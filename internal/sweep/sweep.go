// Package sweep implements the sweep loop component (C8): the tight,
// integer-only control/measurement loop that interleaves channel reads,
// CH1 interpolation, the voltage-decrease correction, and the Manhattan-
// distance discard decision, self-terminating when the curve's tail is
// reached.
//
// This package is intentionally the barest in the module. Every other
// package in this repository leans on the teacher's and the pack's
// third-party stack; this one leans on nothing, because §4.8's
// performance contract is explicit that the no-float/no-allocation/
// no-library-call discipline applies here and nowhere else. Widening to
// 32-bit arithmetic or adding a function call that doesn't inline
// measurably degrades knee resolution on the real hardware this was
// ported from — the contract is a correctness requirement, not a style
// preference (§9).
package sweep

import (
	"time"

	"github.com/gr-butler/ivtracer/internal/adc"
	"github.com/gr-butler/ivtracer/internal/config"
)

// MaxCurvePoints is the largest N_MAX this port ever allocates (§3, §9).
const MaxCurvePoints = config.NMaxDefault

// Curve holds the retained points of one sweep in two parallel fixed-length
// int16 arrays, exactly as spec.md §3 requires: never a slice append in the
// hot path, so there is no reallocation risk partway through a sweep.
type Curve struct {
	V      [MaxCurvePoints]int16
	I      [MaxCurvePoints]int16
	PtNum  int
}

// Reset zeroes the curve at the start of a sweep (§3 lifecycle).
func (c *Curve) Reset() {
	*c = Curve{}
}

// Reader is the two-channel ADC read capability the sweep loop needs. Its
// only implementation in production is *adc.Device; tests supply a
// sequence of canned readings.
type Reader interface {
	Read(ch adc.Channel) (uint16, error)
}

// Params are the per-sweep inputs the loop needs, snapshotted by the
// supervisor from config.Tunables plus the outputs of C5/C6/C7 so that a
// Config message arriving during a later sweep's report phase can never
// mutate a sweep already in flight.
type Params struct {
	MaxIVPoints int
	MaxDiscards int
	MaxIVMeas   int
	VScale      int16
	IScale      int16
	Isc         uint16
	Voc         uint16
	DoneCh1     uint16
	// PollTimeout is set when the Isc stabilizer (C6) exhausted
	// MAX_ISC_POLL; the sweep loop then terminates after its first
	// iteration (§4.6, §4.8, §8 scenario 4).
	PollTimeout bool
}

// Result carries the diagnostics the report emitter (C9) lists.
type Result struct {
	PtNum        int
	NumMeas      int
	MinManhattan int16
	ElapsedUsecs int64
}

// Run executes the sweep loop over curve, which must already hold point 0
// (the last Isc-stabilization sample) at index 0 with PtNum==1. It returns
// once the tail is reached, the point buffer fills, or MAX_IV_MEAS is
// exhausted.
func Run(curve *Curve, r Reader, p Params) Result {
	start := time.Now()

	maxPoints := p.MaxIVPoints
	if maxPoints > MaxCurvePoints {
		maxPoints = MaxCurvePoints
	}

	minManhattan := int16((int32(p.Isc)*int32(p.IScale) + int32(p.Voc)*int32(p.VScale)) / int32(maxPoints))

	ptNum := 1
	adcCh1ValPrev := curve.I[0]
	updatePrevCh1 := false
	numDiscarded := 0
	numMeas := 1
	prevI := curve.I[0]

	for {
		curI, _ := r.Read(adc.Current)
		curV, _ := r.Read(adc.Voltage)
		ci := int16(curI)
		cv := int16(curV)

		if updatePrevCh1 {
			curve.I[ptNum-1] = (adcCh1ValPrev*config.InterpW1 + ci*config.InterpW2 + config.InterpHalf) / (config.InterpW1 + config.InterpW2)
		}

		curve.V[ptNum] = cv

		dv := cv - curve.V[ptNum-1]
		di := curve.I[ptNum-1] - ci
		diRecent := prevI - ci
		prevI = ci

		if (ci < int16(p.DoneCh1) && diRecent < 3) || p.PollTimeout {
			if updatePrevCh1 {
				curve.I[ptNum-1] = ci
			}
			break
		}

		if cv < curve.V[ptNum-1] {
			for ptNum > 1 && curve.V[ptNum-1] > cv {
				ptNum--
			}
			curve.V[ptNum-1] = cv
			curve.I[ptNum-1] = ci
			adcCh1ValPrev = ci
			updatePrevCh1 = true
		} else {
			d := dv*p.VScale + di*p.IScale
			if d >= minManhattan || numDiscarded >= p.MaxDiscards {
				curve.I[ptNum] = ci
				adcCh1ValPrev = ci
				updatePrevCh1 = true
				numDiscarded = 0
				ptNum++
				if ptNum >= maxPoints {
					break
				}
			} else {
				updatePrevCh1 = false
				numDiscarded++
			}
		}

		if numMeas >= p.MaxIVMeas {
			break
		}
		numMeas++
	}

	curve.PtNum = ptNum

	return Result{
		PtNum:        ptNum,
		NumMeas:      numMeas,
		MinManhattan: minManhattan,
		ElapsedUsecs: time.Since(start).Microseconds(),
	}
}
