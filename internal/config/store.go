package config

import (
	"fmt"
	"strconv"
)

// Tunables are the scalar sweep-loop parameters mutable via Config messages
// (§4.3). All are plain ints/int16s: nothing here is read from the sweep
// hot path directly — the supervisor snapshots them into sweep.Params at
// the start of each sweep, so a Config message received mid-report can
// never tear a running sweep's parameters.
type Tunables struct {
	ClkDiv       int
	MaxIVPoints  int
	MinIscADC    int
	MaxIscPoll   int
	IscStableADC int
	MaxDiscards  int
	AspectWidth  int16
	AspectHeight int16
}

// DefaultTunables returns the compiled-in defaults (§4.3, §6).
func DefaultTunables() Tunables {
	return Tunables{
		ClkDiv:       ClkDivDefault,
		MaxIVPoints:  MaxIVPointsDefault,
		MinIscADC:    MinIscADCDefault,
		MaxIscPoll:   MaxIscPollDefault,
		IscStableADC: IscStableADCDefault,
		MaxDiscards:  MaxDiscardsDefault,
		AspectWidth:  AspectWidthDefault,
		AspectHeight: AspectHeightDefault,
	}
}

// PersistentStore is the flat byte-addressed backing described in §6:
// offset 0 holds a magic sentinel, offset 4 a count of valid entries,
// offset 44 the relay-polarity flag. Two implementations exist: an
// in-process EEPROM emulation (always available) and an optional
// Postgres-backed store (internal/config/pgstore) for fleets that want
// config to survive an SD-card reflash.
type PersistentStore interface {
	ReadFloat(addr int) (value float32, ok bool, err error)
	WriteFloat(addr int, value float32) error
	Dump() (map[int]float32, error)
}

// RelayActuator is the subset of relay.Sequencer that manual Config
// messages (RELAY_STATE, SECOND_RELAY_STATE) are allowed to drive.
type RelayActuator interface {
	SetPrimary(active bool)
	SetSecondary(active bool)
}

// Calibrator runs the DO_SSR_CURR_CAL routine (§4.11).
type Calibrator interface {
	RunSSRCurrentCal() (avg float64, valid bool, err error)
}

// Store is the config store component (C3).
type Store struct {
	tunables Tunables
	persist  PersistentStore
	relay    RelayActuator
	cal      Calibrator

	polarityActiveHigh bool
	sensorsEnabled     bool
}

// NewStore constructs a Store and loads the persisted relay polarity, per
// §4.10's "Boot: load relay polarity" step. An unprogrammed store (missing
// magic sentinel) falls back to active-low silently, per §7.
func NewStore(persist PersistentStore, relay RelayActuator, cal Calibrator, sensorsEnabled bool) *Store {
	s := &Store{
		tunables:       DefaultTunables(),
		persist:        persist,
		relay:          relay,
		cal:            cal,
		sensorsEnabled: sensorsEnabled,
	}
	s.reloadPolarity()
	return s
}

func (s *Store) reloadPolarity() {
	if s.persist == nil {
		s.polarityActiveHigh = false
		return
	}
	magic, ok, err := s.persist.ReadFloat(PersistMagicAddr)
	if err != nil || !ok || magic != PersistMagicValue {
		s.polarityActiveHigh = false
		return
	}
	pol, ok, err := s.persist.ReadFloat(PersistedPolarityAddr)
	if err != nil || !ok {
		s.polarityActiveHigh = false
		return
	}
	s.polarityActiveHigh = pol != 0.0
}

// SeedDefaults overlays YAML-file tunable defaults (§4.3 ambient addition)
// before the handshake begins. A subsequent Config message always wins.
func (s *Store) SeedDefaults(fd *FileDefaults) {
	s.tunables = fd.Apply(s.tunables)
}

// PolarityActiveHigh reports the currently loaded relay polarity.
func (s *Store) PolarityActiveHigh() bool {
	return s.polarityActiveHigh
}

// Tunables returns a copy of the current sweep tunables.
func (s *Store) Tunables() Tunables {
	return s.tunables
}

// NMax returns the retained-array capacity given the current sensor
// configuration. EffectiveMaxIVPoints clamps MAX_IV_POINTS against it.
func (s *Store) NMax() int {
	return EffectiveNMax(s.sensorsEnabled)
}

// EffectiveMaxIVPoints is MAX_IV_POINTS clamped to N_MAX.
func (s *Store) EffectiveMaxIVPoints() int {
	nmax := s.NMax()
	if s.tunables.MaxIVPoints > nmax {
		return nmax
	}
	return s.tunables.MaxIVPoints
}

// Apply processes one Config message (§4.3, §4.4, §8 scenario 6). It
// returns the response lines to send before the closing "Config
// processed"/"Config not processed" status, and an error if the message
// was rejected.
func (s *Store) Apply(key string, args []string) ([]string, error) {
	if scalarKeys[key] {
		return s.applyScalar(key, args)
	}
	switch key {
	case KeyWriteEEPROM:
		return s.applyWriteEEPROM(args)
	case KeyDumpEEPROM:
		return s.applyDumpEEPROM(args)
	case KeyRelayState:
		return s.applyRelayState(args, true)
	case KeySecondRelayState:
		return s.applyRelayState(args, false)
	case KeyDoSSRCurrCal:
		return s.applySSRCal(args)
	default:
		return nil, fmt.Errorf("Unknown config key %s", key)
	}
}

func expectArgs(key string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("Expected %d args for config type %s, got %d", n, key, len(args))
	}
	return nil
}

func (s *Store) applyScalar(key string, args []string) ([]string, error) {
	if err := expectArgs(key, args, 1); err != nil {
		return nil, err
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("Invalid value %q for config type %s", args[0], key)
	}
	switch key {
	case KeyClkDiv:
		s.tunables.ClkDiv = v
	case KeyMaxIVPoints:
		s.tunables.MaxIVPoints = v
	case KeyMinIscADC:
		s.tunables.MinIscADC = v
	case KeyMaxIscPoll:
		s.tunables.MaxIscPoll = v
	case KeyIscStableADC:
		s.tunables.IscStableADC = v
	case KeyMaxDiscards:
		s.tunables.MaxDiscards = v
	case KeyAspectWidth:
		if v < 1 || v > 8 {
			return nil, fmt.Errorf("ASPECT_WIDTH must be in [1,8], got %d", v)
		}
		s.tunables.AspectWidth = int16(v)
	case KeyAspectHeight:
		if v < 1 || v > 8 {
			return nil, fmt.Errorf("ASPECT_HEIGHT must be in [1,8], got %d", v)
		}
		s.tunables.AspectHeight = int16(v)
	}
	return nil, nil
}

func (s *Store) applyWriteEEPROM(args []string) ([]string, error) {
	if err := expectArgs(KeyWriteEEPROM, args, 2); err != nil {
		return nil, err
	}
	addr, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, fmt.Errorf("Invalid address %q for WRITE_EEPROM", args[0])
	}
	val, err := strconv.ParseFloat(args[1], 32)
	if err != nil {
		return nil, fmt.Errorf("Invalid value %q for WRITE_EEPROM", args[1])
	}
	if s.persist == nil {
		return nil, fmt.Errorf("No persistent store configured")
	}
	if err := s.persist.WriteFloat(addr, float32(val)); err != nil {
		return nil, fmt.Errorf("Failed to write EEPROM: %v", err)
	}
	if addr == PersistedPolarityAddr {
		s.polarityActiveHigh = val != 0.0
		if p, ok := s.relay.(interface{ SetPolarity(bool) }); ok {
			p.SetPolarity(s.polarityActiveHigh)
		}
	}
	return nil, nil
}

func (s *Store) applyDumpEEPROM(args []string) ([]string, error) {
	if err := expectArgs(KeyDumpEEPROM, args, 0); err != nil {
		return nil, err
	}
	if s.persist == nil {
		return nil, nil
	}
	entries, err := s.persist.Dump()
	if err != nil {
		return nil, fmt.Errorf("Failed to dump EEPROM: %v", err)
	}
	lines := make([]string, 0, len(entries))
	for addr := range entries {
		lines = append(lines, fmt.Sprintf("EEPROM %d %.4f", addr, entries[addr]))
	}
	return lines, nil
}

func (s *Store) applyRelayState(args []string, primary bool) ([]string, error) {
	key := KeySecondRelayState
	if primary {
		key = KeyRelayState
	}
	if err := expectArgs(key, args, 1); err != nil {
		return nil, err
	}
	v, err := strconv.Atoi(args[0])
	if err != nil || (v != 0 && v != 1) {
		return nil, fmt.Errorf("Expected 0 or 1 for %s, got %q", key, args[0])
	}
	if s.relay == nil {
		return nil, fmt.Errorf("No relay actuator configured")
	}
	if primary {
		s.relay.SetPrimary(v == 1)
	} else {
		s.relay.SetSecondary(v == 1)
	}
	return nil, nil
}

func (s *Store) applySSRCal(args []string) ([]string, error) {
	if err := expectArgs(KeyDoSSRCurrCal, args, 0); err != nil {
		return nil, err
	}
	if s.cal == nil {
		return nil, fmt.Errorf("No calibrator configured")
	}
	avg, valid, err := s.cal.RunSSRCurrentCal()
	if err != nil {
		return nil, fmt.Errorf("SSR calibration failed: %v", err)
	}
	status := "valid"
	if !valid {
		status = "invalid"
	}
	return []string{fmt.Sprintf("SSR current cal average CH1:%.1f (%s)", avg, status)}, nil
}
