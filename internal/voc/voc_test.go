package voc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-butler/ivtracer/internal/adc"
)

// scriptedReader replays independent per-channel sequences, cycling once
// exhausted, so CH0 (voltage) and CH1 (current) can be scripted separately.
type scriptedReader struct {
	voltage []uint16
	current []uint16
	vIdx    int
	iIdx    int
	err     error
}

func (r *scriptedReader) Read(ch adc.Channel) (uint16, error) {
	if r.err != nil {
		return 0, r.err
	}
	if ch == adc.Voltage {
		v := r.voltage[r.vIdx%len(r.voltage)]
		r.vIdx++
		return v, nil
	}
	v := r.current[r.iIdx%len(r.current)]
	r.iIdx++
	return v, nil
}

func TestSampleReturnsModeNotMean(t *testing.T) {
	r := &scriptedReader{
		voltage: []uint16{100, 100, 100, 100, 100, 900},
		current: []uint16{3, 4, 5, 6, 7, 3},
	}
	res, err := Sample(r, 6, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), res.Voc)
}

func TestSampleNoiseFloorIsMinAndMaxOfCH1(t *testing.T) {
	// Matches §8 scenario 1: Voc polling returns CH0=620 mode, CH1 in [3,7].
	r := &scriptedReader{
		voltage: []uint16{620, 620, 620, 620, 615},
		current: []uint16{3, 5, 7, 4, 6},
	}
	res, err := Sample(r, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(620), res.Voc)
	assert.Equal(t, uint16(3), res.NoiseFloorMin)
	assert.Equal(t, uint16(7), res.NoiseFloorMax)
}

func TestSampleDoneCh1FloorsAt20(t *testing.T) {
	r := &scriptedReader{
		voltage: []uint16{500, 500, 500, 500},
		current: []uint16{1, 1, 1, 1},
	}
	res, err := Sample(r, 4, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(MinDoneCh1), res.DoneCh1)
}

func TestSampleDoneCh1TracksNoiseFloor(t *testing.T) {
	r := &scriptedReader{
		voltage: []uint16{490, 500, 510, 495, 505},
		current: []uint16{20, 22, 21, 20, 23},
	}
	res, err := Sample(r, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(2*20), res.DoneCh1)
}

func TestSampleFlagsDisconnectedPanelAndForcesVocZero(t *testing.T) {
	// §4.5: CH0 always 5, CH1 always 0 -> Voc forced to 0.
	r := &scriptedReader{
		voltage: []uint16{5, 5, 5, 5},
		current: []uint16{0, 0, 0, 0},
	}
	res, err := Sample(r, 4, 10)
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Equal(t, uint16(0), res.Voc)
}

func TestSampleConnectedWhenAboveThreshold(t *testing.T) {
	r := &scriptedReader{
		voltage: []uint16{1200, 1205, 1198},
		current: []uint16{3, 4, 3},
	}
	res, err := Sample(r, 3, 10)
	require.NoError(t, err)
	assert.True(t, res.Connected)
	assert.Equal(t, uint16(1200), res.Voc)
}

func TestSamplePropagatesReadError(t *testing.T) {
	r := &scriptedReader{err: errors.New("bus fault")}
	_, err := Sample(r, 5, 10)
	require.Error(t, err)
}

func TestModeTableEvictsLeastObservedWhenFull(t *testing.T) {
	var m modeTable
	for i := 0; i < modeTableCapacity; i++ {
		m.add(uint16(i))
	}
	m.add(uint16(999))
	found := false
	for i := 0; i < m.used; i++ {
		if m.values[i] == 999 {
			found = true
		}
	}
	assert.True(t, found)
}
