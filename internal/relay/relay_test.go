package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

// fakePin is the minimal PinOut fake used by these tests: it just records
// the last level it was driven to.
type fakePin struct {
	name string
	l    gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.l = l
	return nil
}

func newTestSequencer(activeHigh bool) (*Sequencer, map[string]*fakePin) {
	pins := map[string]*fakePin{
		"primary":   {name: "primary"},
		"secondary": {name: "secondary"},
		"ssr2":      {name: "ssr2"},
		"ssr3":      {name: "ssr3"},
		"ssr4":      {name: "ssr4"},
		"ssr6":      {name: "ssr6"},
	}
	seq := New(Lines{
		Primary:   pins["primary"],
		Secondary: pins["secondary"],
		SSR2:      pins["ssr2"],
		SSR3:      pins["ssr3"],
		SSR4:      pins["ssr4"],
		SSR6:      pins["ssr6"],
	}, activeHigh)
	return seq, pins
}

func TestArmShortDrivesExpectedLevels(t *testing.T) {
	seq, pins := newTestSequencer(true)
	seq.ArmShort()

	assert.Equal(t, gpio.High, pins["primary"].l)
	assert.Equal(t, gpio.Low, pins["ssr3"].l)
	assert.Equal(t, gpio.Low, pins["ssr4"].l)
	assert.Equal(t, gpio.Low, pins["ssr2"].l)
	assert.Equal(t, StateShortPresent, seq.State())
}

func TestReleaseToCapacitorTurnsOffBypass(t *testing.T) {
	seq, pins := newTestSequencer(true)
	seq.ArmShort()
	seq.ReleaseToCapacitor()

	assert.Equal(t, gpio.High, pins["ssr3"].l)
	assert.Equal(t, gpio.High, pins["ssr4"].l)
	assert.Equal(t, StateCharging, seq.State())
}

func TestReturnToBleedDrainsCapacitor(t *testing.T) {
	seq, pins := newTestSequencer(true)
	seq.ArmShort()
	seq.ReleaseToCapacitor()
	seq.ReturnToBleed()

	assert.Equal(t, gpio.Low, pins["primary"].l)
	assert.Equal(t, gpio.Low, pins["ssr3"].l)
	assert.Equal(t, gpio.Low, pins["ssr4"].l)
	assert.Equal(t, StateIdleBleed, seq.State())
}

func TestActiveLowPolarityInvertsPrimary(t *testing.T) {
	seq, pins := newTestSequencer(false)
	seq.SetPrimary(true)
	assert.Equal(t, gpio.Low, pins["primary"].l)
	seq.SetPrimary(false)
	assert.Equal(t, gpio.High, pins["primary"].l)
}

func TestPolarityFlipReversesActiveLevelOnly(t *testing.T) {
	seq, pins := newTestSequencer(true)
	seq.SetPrimary(true)
	assert.Equal(t, gpio.High, pins["primary"].l)

	seq.SetPolarity(false)
	seq.SetPrimary(true)
	assert.Equal(t, gpio.Low, pins["primary"].l)
}

func TestUnconnectedLineIsNoOp(t *testing.T) {
	seq := New(Lines{}, true)
	require.NotPanics(t, func() {
		seq.ArmShort()
		seq.ReleaseToCapacitor()
		seq.ReturnToBleed()
		seq.SetPrimary(true)
		seq.SetSecondary(true)
	})
}
