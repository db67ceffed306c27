// Package relay implements the relay sequencer component (C2): a
// variant-independent state machine driving the digital control lines that
// sequence a capacitor bank between bleed, short-circuit, and charging.
// Grounded on the teacher's led.LED (a named GPIO line with polarity-aware
// On/Off and a nil-safe pin guard for unconnected hardware), generalized
// from one line to the small named-line table §4.2/§6 describe.
package relay

import (
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
)

// State is the sequencer's current position in the Idle/Bleed ->
// ShortPresent -> Charging cycle (§4.2).
type State int

const (
	StateIdleBleed State = iota
	StateShortPresent
	StateCharging
)

func (s State) String() string {
	switch s {
	case StateIdleBleed:
		return "Idle/Bleed"
	case StateShortPresent:
		return "ShortPresent"
	case StateCharging:
		return "Charging"
	default:
		return "Unknown"
	}
}

// PinOut is the only capability this package needs from a GPIO line. Any
// periph.io/x/conn/v3/gpio.PinIO satisfies it structurally; tests can
// supply a much smaller fake instead of implementing the full PinIO
// interface.
type PinOut interface {
	Out(l gpio.Level) error
}

// line is one named digital control line with its own polarity, mirroring
// led.LED's nil-safe gpioPin guard.
type line struct {
	name       string
	pin        PinOut // nil for a variant that doesn't wire this line
	activeHigh bool
}

func (l *line) drive(active bool) {
	if l.pin == nil {
		return
	}
	level := gpio.Low
	if active == l.activeHigh {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		logger.Errorf("relay: failed to drive %s: %v", l.name, err)
	}
}

// ShortSettleDelay is the minimum settle time after arming the short path
// before it is safe to proceed for SSR variants; harmless but unnecessary
// for EMR variants (§4.2).
const ShortSettleDelay = 20 * time.Millisecond

// Sequencer drives Primary/Secondary/SSR2/SSR3/SSR4/SSR6 (§6). Any line may
// be nil (unwired on a given physical variant); driving a nil line is a
// no-op, which is how this abstraction hides EMR/SSR x module/cell
// differences without dynamic dispatch (§9).
type Sequencer struct {
	mu sync.Mutex

	primary   *line
	secondary *line
	ssr2      *line // complement of primary, module SSR variant
	ssr3      *line // capacitor bypass, module
	ssr4      *line // capacitor bypass + bleed, cell
	ssr6      *line // complement of secondary, SSR cell

	state State
}

// Lines groups the raw pin handles a caller wires up at boot. A nil PinIO
// means that logical line is unconnected on this variant.
type Lines struct {
	Primary, Secondary, SSR2, SSR3, SSR4, SSR6 PinOut
}

// New builds a Sequencer with the given polarity for the persisted
// primary/secondary pair (§4.2: "resolved from the persisted polarity
// bit"). SSR2 is fixed active-high; SSR3/SSR4/SSR6 fixed active-low (§6).
func New(l Lines, primaryActiveHigh bool) *Sequencer {
	return &Sequencer{
		primary:   &line{name: "Primary", pin: l.Primary, activeHigh: primaryActiveHigh},
		secondary: &line{name: "Secondary", pin: l.Secondary, activeHigh: primaryActiveHigh},
		ssr2:      &line{name: "SSR2", pin: l.SSR2, activeHigh: true},
		ssr3:      &line{name: "SSR3", pin: l.SSR3, activeHigh: false},
		ssr4:      &line{name: "SSR4", pin: l.SSR4, activeHigh: false},
		ssr6:      &line{name: "SSR6", pin: l.SSR6, activeHigh: false},
		state:     StateIdleBleed,
	}
}

// SetPolarity updates the primary/secondary active level in place, called
// when the host rewrites the persisted polarity address (§3 lifecycle).
func (s *Sequencer) SetPolarity(activeHigh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.activeHigh = activeHigh
	s.secondary.activeHigh = activeHigh
}

// State returns the sequencer's current logical state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ArmShort presents a controlled short: short-path and short-across-
// capacitor switches on, bleed off, primary on. Callers wait
// ShortSettleDelay afterward for SSR variants (§4.2).
func (s *Sequencer) ArmShort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ssr3.drive(true)
	s.ssr4.drive(true)
	s.primary.drive(true)
	s.secondary.drive(true)
	s.ssr2.drive(false)
	s.ssr6.drive(false)
	s.state = StateShortPresent
	time.Sleep(ShortSettleDelay)
}

// ReleaseToCapacitor turns off the short-across-capacitor switch so the
// capacitor begins charging through the PV circuit (§4.2).
func (s *Sequencer) ReleaseToCapacitor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ssr3.drive(false)
	s.ssr4.drive(false)
	s.state = StateCharging
}

// ReturnToBleed turns off the primary relay and turns on bleed (and the
// short-across-capacitor switch, so the capacitor drains) (§4.2).
func (s *Sequencer) ReturnToBleed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.drive(false)
	s.secondary.drive(false)
	s.ssr3.drive(true)
	s.ssr4.drive(true)
	s.ssr2.drive(true)
	s.ssr6.drive(true)
	s.state = StateIdleBleed
}

// SetPrimary / SetSecondary give the host unconditional manual control for
// bench testing (§4.2, RELAY_STATE / SECOND_RELAY_STATE Config keys).
func (s *Sequencer) SetPrimary(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary.drive(active)
}

func (s *Sequencer) SetSecondary(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secondary.drive(active)
}
