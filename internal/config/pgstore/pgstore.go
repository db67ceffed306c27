// Package pgstore is an optional Postgres-backed implementation of
// config.PersistentStore, for deployments that want the persisted
// relay-polarity byte and calibration floats to survive an SD-card
// reflash. Selected with -pg-dsn; the in-process config.EEPROM is used
// otherwise. Grounded on the teacher's reporting.go, which persists
// station readings through a *sql.DB opened with github.com/lib/pq the
// same way: a small params struct, a context-scoped exec/query, errors
// wrapped and returned rather than logged inside the store itself.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS eeprom_cells (
	addr  INTEGER PRIMARY KEY,
	value REAL NOT NULL
)`

// Store persists (addr -> float32) pairs in a Postgres table.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the backing table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create eeprom_cells: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadFloat(addr int) (float32, bool, error) {
	var v float32
	err := s.db.QueryRow(`SELECT value FROM eeprom_cells WHERE addr = $1`, addr).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read eeprom cell %d: %w", addr, err)
	}
	return v, true, nil
}

func (s *Store) WriteFloat(addr int, value float32) error {
	_, err := s.db.Exec(`
		INSERT INTO eeprom_cells (addr, value) VALUES ($1, $2)
		ON CONFLICT (addr) DO UPDATE SET value = EXCLUDED.value`, addr, value)
	if err != nil {
		return fmt.Errorf("write eeprom cell %d: %w", addr, err)
	}
	return nil
}

func (s *Store) Dump() (map[int]float32, error) {
	rows, err := s.db.Query(`SELECT addr, value FROM eeprom_cells ORDER BY addr`)
	if err != nil {
		return nil, fmt.Errorf("dump eeprom_cells: %w", err)
	}
	defer rows.Close()

	out := make(map[int]float32)
	for rows.Next() {
		var addr int
		var val float32
		if err := rows.Scan(&addr, &val); err != nil {
			return nil, fmt.Errorf("scan eeprom_cells row: %w", err)
		}
		out[addr] = val
	}
	return out, rows.Err()
}
