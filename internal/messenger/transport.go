package messenger

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens the named serial device at baud 8-N-1, the framing the
// host side of this protocol always uses. The returned port satisfies
// deadlineSetter, so ServeOne's per-line read timeout is enforced by the
// driver rather than emulated in software.
func OpenSerial(portName string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("messenger: opening %s: %w", portName, err)
	}
	return port, nil
}
