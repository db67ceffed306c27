package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-butler/ivtracer/internal/adc"
)

// scriptedReader replays a fixed sequence of (current, voltage) pairs, one
// pair per iteration, mirroring the teacher's habit of driving hardware-
// facing code from a canned reply queue in tests (metOfficeWOW_test.go).
// The sweep loop reads current then voltage, so the voltage read advances
// to the next pair.
type scriptedReader struct {
	pairs [][2]uint16
	idx   int
}

func (r *scriptedReader) Read(ch adc.Channel) (uint16, error) {
	pair := r.pairs[r.idx]
	if ch == adc.Current {
		return pair[0], nil
	}
	if r.idx < len(r.pairs)-1 {
		r.idx++
	}
	return pair[1], nil
}

func newCurveAt(v0, i0 int16) *Curve {
	c := &Curve{PtNum: 1}
	c.V[0] = v0
	c.I[0] = i0
	return c
}

func TestRunTerminatesOnTailCondition(t *testing.T) {
	curve := newCurveAt(0, 500)
	r := &scriptedReader{pairs: [][2]uint16{
		{450, 100}, {400, 200}, {5, 300}, {5, 300},
	}}
	res := Run(curve, r, Params{
		MaxIVPoints: 200, MaxDiscards: 10, MaxIVMeas: 100000,
		VScale: 4, IScale: 4, Isc: 500, Voc: 300, DoneCh1: 10,
	})
	assert.GreaterOrEqual(t, res.PtNum, 1)
	assert.LessOrEqual(t, res.PtNum, 200)
}

func TestRunStopsAfterFirstIterationOnPollTimeout(t *testing.T) {
	curve := newCurveAt(0, 500)
	r := &scriptedReader{pairs: [][2]uint16{{490, 10}}}
	res := Run(curve, r, Params{
		MaxIVPoints: 200, MaxDiscards: 10, MaxIVMeas: 100000,
		VScale: 4, IScale: 4, Isc: 500, Voc: 300, DoneCh1: 10,
		PollTimeout: true,
	})
	assert.Equal(t, 1, res.PtNum)
	assert.Equal(t, 1, curve.PtNum)
}

func TestRunNeverExceedsConfiguredMaxPoints(t *testing.T) {
	curve := newCurveAt(0, 500)
	pairs := make([][2]uint16, 0, 50)
	for v := uint16(0); v < 4000; v += 20 {
		pairs = append(pairs, [2]uint16{500, v})
	}
	r := &scriptedReader{pairs: pairs}
	res := Run(curve, r, Params{
		MaxIVPoints: 10, MaxDiscards: 0, MaxIVMeas: 100000,
		VScale: 1, IScale: 1, Isc: 500, Voc: 4000, DoneCh1: 10,
	})
	assert.LessOrEqual(t, res.PtNum, 10)
}

func TestRunHonoursMaxIVMeasFallback(t *testing.T) {
	curve := newCurveAt(0, 4000)
	// current never drops below done_ch1, so only the measurement cap can
	// end the loop.
	pairs := make([][2]uint16, 0, 20)
	for v := uint16(0); v < 400; v += 20 {
		pairs = append(pairs, [2]uint16{4000, v})
	}
	r := &scriptedReader{pairs: pairs}
	res := Run(curve, r, Params{
		MaxIVPoints: 200, MaxDiscards: 0, MaxIVMeas: 5,
		VScale: 1, IScale: 1, Isc: 4000, Voc: 400, DoneCh1: 10,
	})
	assert.Equal(t, 5, res.NumMeas)
}

func TestRunRewindsOnVoltageDecrease(t *testing.T) {
	curve := newCurveAt(0, 500)
	r := &scriptedReader{pairs: [][2]uint16{
		{450, 100},
		{400, 200},
		{420, 150}, // relay bounce: voltage dropped back below the 200 point
		{5, 210},
		{5, 210},
	}}
	res := Run(curve, r, Params{
		MaxIVPoints: 200, MaxDiscards: 0, MaxIVMeas: 100000,
		VScale: 1, IScale: 1, Isc: 500, Voc: 300, DoneCh1: 10,
	})
	require.GreaterOrEqual(t, res.PtNum, 1)
	for i := 1; i < curve.PtNum; i++ {
		assert.GreaterOrEqual(t, curve.V[i], curve.V[i-1])
	}
}

func TestMinManhattanScalesWithMaxPoints(t *testing.T) {
	curve := newCurveAt(0, 500)
	r := &scriptedReader{pairs: [][2]uint16{{5, 300}}}
	res := Run(curve, r, Params{
		MaxIVPoints: 100, MaxDiscards: 10, MaxIVMeas: 100000,
		VScale: 4, IScale: 4, Isc: 400, Voc: 200, DoneCh1: 10,
		PollTimeout: true,
	})
	assert.Equal(t, int16((400*4+200*4)/100), res.MinManhattan)
}
