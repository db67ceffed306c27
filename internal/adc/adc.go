// Package adc implements the ADC driver component (C1): a single-conversion
// read of a selected channel on an external 12-bit SPI ADC. Grounded on the
// teacher's habit of wrapping a periph.io bus handle in a small Device
// struct (sensors.Sensors wraps an i2c.BusCloser the same way this wraps a
// spi.Conn), and on ardnew-drivers/ina260's New(bus)-returns-Device shape.
package adc

import (
	"fmt"

	"periph.io/x/conn/v3/spi"
)

// Channel selects the single-ended input presented to the converter.
type Channel uint8

const (
	Voltage Channel = 0
	Current Channel = 1
)

// MaxCount is the largest value a 12-bit conversion can return.
const MaxCount = 0x0FFF

// Device is a single-conversion reader for a MCP3202-class dual-channel,
// 12-bit, SPI ADC: a 3-byte, MSB-first transaction with the channel
// selected in the command byte (§4.1, §6). The two channels' command
// frames and the receive buffer are precomputed at construction time so
// Read never allocates — it is called twice per sweep-loop iteration
// (§4.8's no-allocation hot-path contract).
type Device struct {
	conn spi.Conn
	tx   [2][3]byte
	rx   [3]byte
}

// New wraps an already-configured SPI connection. The clock divisor (§4.1)
// is the caller's responsibility, set via spi.Port.Connect before New is
// called, the way sensors.Sensors configures its periph bus before handing
// it to a device constructor.
func New(conn spi.Conn) *Device {
	d := &Device{conn: conn}
	d.tx[Voltage] = commandBytes(Voltage)
	d.tx[Current] = commandBytes(Current)
	return d
}

// Read performs one single-ended conversion on ch and returns the 12-bit
// count in [0, 4095]. There are no retries and no error surfaced for a wire
// fault: a disconnected or faulty ADC simply returns a constant count, per
// §4.1. A transport-level failure (SPI bus error) is the only error this
// returns, and — critically for the sweep loop's performance contract
// (§4.8) — this function performs no logging and no allocation of its
// own; callers outside the hot path decide whether to log a failure.
func (d *Device) Read(ch Channel) (uint16, error) {
	tx := d.tx[ch][:]
	rx := d.rx[:]
	if err := d.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("adc: spi transaction failed: %w", err)
	}
	return decodeCount(rx), nil
}

// commandBytes builds the 3-byte single-ended conversion command, MSB
// first, channel-selected, per §4.1/§6.
func commandBytes(ch Channel) [3]byte {
	// Byte 0: start bit. Byte 1: single-ended/channel select nibble.
	// Byte 2: don't-care, clocked to receive the low byte of the result.
	b1 := byte(0b1000_0000) | (byte(ch) << 6)
	return [3]byte{0x01, b1, 0x00}
}

// decodeCount extracts bits 11:8 from the second received byte and bits 7:0
// from the third, per §4.1.
func decodeCount(rx []byte) uint16 {
	if len(rx) < 3 {
		return 0
	}
	hi := uint16(rx[1]&0x0F) << 8
	lo := uint16(rx[2])
	return (hi | lo) & MaxCount
}
