package config

import "sync"

// EEPROM is the always-available in-process implementation of
// PersistentStore: a flat, byte-addressed table of float32 values keyed by
// integer offset, matching the physical layout of §6 (offset 0 magic,
// offset 4 count, offset 44 polarity). Real hardware backs this with actual
// EEPROM; this port keeps it in memory unless -pg-dsn selects
// internal/config/pgstore instead.
type EEPROM struct {
	mu     sync.Mutex
	cells  map[int]float32
	loaded bool
}

// NewEEPROM returns an unprogrammed store: reads of any address, including
// the magic sentinel, report ok=false until WriteFloat has been called at
// least once, matching §7's "unprogrammed persistent store" fallback.
func NewEEPROM() *EEPROM {
	return &EEPROM{cells: make(map[int]float32)}
}

func (e *EEPROM) ReadFloat(addr int) (float32, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return 0, false, nil
	}
	v, ok := e.cells[addr]
	return v, ok, nil
}

func (e *EEPROM) WriteFloat(addr int, value float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cells[addr] = value
	if !e.loaded {
		e.cells[PersistMagicAddr] = PersistMagicValue
		e.loaded = true
	}
	n := 0
	for k := range e.cells {
		if k != PersistMagicAddr && k != PersistCountAddr {
			n++
		}
	}
	e.cells[PersistCountAddr] = float32(n)
	return nil
}

func (e *EEPROM) Dump() (map[int]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]float32, len(e.cells))
	for k, v := range e.cells {
		if k == PersistMagicAddr || k == PersistCountAddr {
			continue
		}
		out[k] = v
	}
	return out, nil
}
