// Package scale implements the scale computer component (C7): a pure,
// integer-only function turning the measured Isc/Voc pair and the
// configured plot aspect ratio into the per-axis voltage/current scale
// factors the sweep loop's Manhattan-distance discard decision uses
// (§4.7, §4.8).
//
// Like internal/sweep, this package carries no third-party dependency:
// it is a handful of integer operations with a hard "result fits in a
// signed 16-bit word" contract (§9), and there is nothing in the pack's
// stack that expresses that more directly than plain arithmetic.
package scale

import "math/bits"

// TotalScaleBudget is the hard ceiling v_scale+i_scale must never exceed,
// the constraint that keeps every downstream Manhattan-distance term
// inside 16 bits by construction (§6, §9).
const TotalScaleBudget = 16

// Compute derives (vScale, iScale) from the measured short-circuit current,
// open-circuit voltage, and the configured aspect ratio (width:height of
// the plotted curve), so that equal Manhattan distances correspond to
// equal pixel spacings on the rendered aspect ratio. A degenerate input
// (zero Isc, zero Voc, or a non-positive aspect term) returns the safe
// 1:1 fallback rather than dividing by zero.
func Compute(isc, voc uint16, aspectWidth, aspectHeight int16) (vScale, iScale int16) {
	if isc == 0 || voc == 0 || aspectWidth <= 0 || aspectHeight <= 0 {
		return 1, 1
	}

	// Step 1: swapped so the axis with larger ADC span gets the larger
	// scale (equates pixel spacing).
	initialV := int32(aspectWidth) * int32(isc)
	initialI := int32(aspectHeight) * int32(voc)

	// Step 2.
	lg, sm := initialV, initialI
	vIsLg := true
	if initialI > initialV {
		lg, sm = initialI, initialV
		vIsLg = false
	}

	// Step 3: highest set bit of lg, clamped to [4,15]; shift amount and
	// round-up mask derived from it.
	b := bits.Len32(uint32(lg)) - 1
	if b < 4 {
		b = 4
	}
	if b > 15 {
		b = 15
	}
	s := uint(b - 3)
	roundUpMask := int32(1) << uint(b-4)

	// Step 4.
	lgScale := lg >> s
	if lg&roundUpMask != 0 {
		lgScale++
	}
	smScale := sm >> s
	if sm&roundUpMask != 0 {
		smScale++
	}

	// Step 5: truncate both by 1 if the budget is exceeded.
	if lgScale+smScale > TotalScaleBudget {
		lgScale >>= 1
		smScale >>= 1
	}

	// Step 6: floor at 1.
	if smScale == 0 {
		smScale = 1
		if lgScale == TotalScaleBudget {
			lgScale = TotalScaleBudget - 1
		}
	}

	// Step 7: restore axis assignment.
	if vIsLg {
		return int16(lgScale), int16(smScale)
	}
	return int16(smScale), int16(lgScale)
}
