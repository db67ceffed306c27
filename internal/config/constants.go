// Package config holds the tunable sweep parameters, the relay-polarity
// bit, and the flat byte-addressed persistence layer described in the
// component design for the config store (C3).
package config

// Compile-time-equivalent bounds (spec.md §6). NMax is the true compile-time
// bound on this port; unlike the 8-bit original there is no static array
// size decision to make in Go, but the bound is enforced everywhere a curve
// is allocated so the memory budget described in the spec is honoured.
const (
	NMaxDefault = 275

	// NMaxSensorReduction is reserved when environmental sensor reporting
	// (§4.10 supplement) is enabled, mirroring the spec's note that N_MAX is
	// "275 minus reductions for enabled sensor blocks".
	NMaxSensorReduction = 2
)

// Default tunables, all mutable via a Config message (§4.3).
const (
	ClkDivDefault        = 2
	MaxIVPointsDefault   = 200
	MinIscADCDefault     = 50
	MaxIscPollDefault    = 1000
	IscStableADCDefault  = 3
	MaxDiscardsDefault   = 10
	AspectWidthDefault   = 4
	AspectHeightDefault  = 3
	VocPollingLoops      = 400
	MinVocADCDefault     = 10
	MsgTimerTimeoutTicks = 100 // 1ms ticks (§4.4, §5)
	MaxIVMeasDefault     = 100000

	// W1/W2 are the CH1 interpolation weights of §4.8 step 2. W1+W2 <= 16
	// is a compile-time assertion in §6.
	InterpW1   = 5
	InterpW2   = 3
	InterpHalf = (InterpW1 + InterpW2) / 2

	SSRCalUSecs   = 3_000_000
	SSRCalRDUSecs = 100_000
)

// Keys recognized by a Config message (§4.3).
const (
	KeyClkDiv          = "CLK_DIV"
	KeyMaxIVPoints      = "MAX_IV_POINTS"
	KeyMinIscADC        = "MIN_ISC_ADC"
	KeyMaxIscPoll       = "MAX_ISC_POLL"
	KeyIscStableADC     = "ISC_STABLE_ADC"
	KeyMaxDiscards      = "MAX_DISCARDS"
	KeyAspectHeight     = "ASPECT_HEIGHT"
	KeyAspectWidth      = "ASPECT_WIDTH"
	KeyWriteEEPROM      = "WRITE_EEPROM"
	KeyDumpEEPROM       = "DUMP_EEPROM"
	KeyRelayState       = "RELAY_STATE"
	KeySecondRelayState = "SECOND_RELAY_STATE"
	KeyDoSSRCurrCal     = "DO_SSR_CURR_CAL"
)

// scalarKeys is the set of keys that take exactly one numeric value and are
// stored directly as sweep tunables.
var scalarKeys = map[string]bool{
	KeyClkDiv:          true,
	KeyMaxIVPoints:      true,
	KeyMinIscADC:        true,
	KeyMaxIscPoll:       true,
	KeyIscStableADC:     true,
	KeyMaxDiscards:      true,
	KeyAspectHeight:     true,
	KeyAspectWidth:      true,
}

// PersistedPolarityAddr is the offset within the persistent store (§6) that
// holds the relay-active-high flag: 0.0 means active-low, anything else
// means active-high.
const PersistedPolarityAddr = 44

// PersistMagicAddr / PersistCountAddr guard against reading an unprogrammed
// store (§6).
const (
	PersistMagicAddr = 0
	PersistCountAddr = 4
	PersistMagicValue = 123456.7890
)

// EffectiveNMax returns the retained-array capacity for a sweep, applying
// the sensor-block reduction described in §9's "shared buffer reuse" note.
func EffectiveNMax(sensorsEnabled bool) int {
	if sensorsEnabled {
		return NMaxDefault - NMaxSensorReduction
	}
	return NMaxDefault
}
