// Package messenger implements the host messenger component (C4): a
// line-oriented protocol over a serial transport that reads whitespace-
// tokenized commands, dispatches the Ready, Config and Go verbs to its
// Dispatcher, and writes back whatever response lines each verb produces
// (none for Ready).
//
// Grounded on the teacher's reporting.go, which builds one line of output
// per metric and writes it out through a single small sink function; this
// package generalizes that shape to the two-way, request/response line
// protocol the host side of the wire expects.
package messenger

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
)

// MaxLineLength bounds a single incoming line; anything longer is
// discarded and reported back as an error rather than accumulated
// unbounded, so a runaway or noisy host connection cannot grow this
// package's buffers without limit.
const MaxLineLength = 35

// Dispatcher is the supervisor capability the messenger drives: one method
// per recognized inbound verb (§6), plus the status prompt the supervisor's
// current phase emits before the next line is read (§4.10). Satisfied by
// *supervisor.Supervisor.
type Dispatcher interface {
	// Prompt returns the status line to emit before reading the next host
	// line, or "" for none.
	Prompt() string
	// HandleReady processes an inbound "Ready" line.
	HandleReady() error
	// ApplyConfig processes an inbound "Config <key> [...]" line.
	ApplyConfig(key string, args []string) ([]string, error)
	// HandleGo processes an inbound "Go" line and returns the resulting
	// report lines.
	HandleGo() ([]string, error)
}

// deadlineSetter is implemented by go.bug.st/serial.Port; tests using a
// plain bytes.Buffer simply don't satisfy it, and ServeOne skips the
// timeout in that case.
type deadlineSetter interface {
	SetReadTimeout(time.Duration) error
}

// Messenger owns one line-oriented conversation with the host.
type Messenger struct {
	rw         io.ReadWriter
	reader     *bufio.Reader
	timeout    time.Duration
	dispatcher Dispatcher
}

// New wraps rw (a serial port in production, a bytes.Buffer or net.Conn in
// tests) with the given per-read timeout and Config dispatcher.
func New(rw io.ReadWriter, timeout time.Duration, d Dispatcher) *Messenger {
	return &Messenger{
		rw:         rw,
		reader:     bufio.NewReader(rw),
		timeout:    timeout,
		dispatcher: d,
	}
}

// ServeOne reads one line, dispatches it, and writes back the response. It
// returns the underlying read error (including io.EOF) unchanged so a
// caller looping on ServeOne can distinguish "connection closed" from a
// protocol-level error, which is always reported as an "ERROR: ..." line
// instead of being returned.
func (m *Messenger) ServeOne() error {
	if ds, ok := m.rw.(deadlineSetter); ok {
		if err := ds.SetReadTimeout(m.timeout); err != nil {
			logger.Warnf("messenger: failed to set read timeout: %v", err)
		}
	}

	if prompt := m.dispatcher.Prompt(); prompt != "" {
		if err := m.writeLine(prompt); err != nil {
			return err
		}
	}

	line, err := m.readLine()
	if err != nil {
		return err
	}
	if line == "" {
		return nil
	}

	fields := strings.Fields(line)
	verb := fields[0]

	switch verb {
	case "Ready":
		if err := m.dispatcher.HandleReady(); err != nil {
			return m.writeLine(fmt.Sprintf("ERROR: %v", err))
		}
		return nil

	case "Go":
		lines, err := m.dispatcher.HandleGo()
		if err != nil {
			return m.writeLine(fmt.Sprintf("ERROR: %v", err))
		}
		return m.writeLines(lines)

	case "Config":
		if len(fields) < 2 {
			return m.writeLine("ERROR: Config requires a key")
		}
		key := fields[1]
		args := fields[2:]
		resp, applyErr := m.dispatcher.ApplyConfig(key, args)
		if applyErr != nil {
			if err := m.writeLine(fmt.Sprintf("ERROR: %v", applyErr)); err != nil {
				return err
			}
			return m.writeLine("Config not processed")
		}
		if err := m.writeLines(resp); err != nil {
			return err
		}
		return m.writeLine("Config processed")

	default:
		return m.writeLine(fmt.Sprintf("ERROR: unrecognized verb %s", verb))
	}
}

func (m *Messenger) writeLines(lines []string) error {
	for _, l := range lines {
		if err := m.writeLine(l); err != nil {
			return err
		}
	}
	return nil
}

// readLine reads up to MaxLineLength bytes looking for '\n'. A line that
// never terminates within the bound is reported back as an over-length
// error rather than silently truncated.
func (m *Messenger) readLine() (string, error) {
	var sb strings.Builder
	for sb.Len() < MaxLineLength {
		b, err := m.reader.ReadByte()
		if err != nil {
			if sb.Len() > 0 && err == io.EOF {
				return strings.TrimRight(sb.String(), "\r\n"), nil
			}
			return "", err
		}
		if b == '\n' {
			return strings.TrimRight(sb.String(), "\r\n"), nil
		}
		sb.WriteByte(b)
	}
	// Drain the rest of the oversized line so the next ServeOne call
	// starts at a real line boundary instead of mid-line.
	for {
		b, err := m.reader.ReadByte()
		if err != nil || b == '\n' {
			break
		}
	}
	if err := m.writeLine("ERROR: line too long"); err != nil {
		return "", err
	}
	return "", nil
}

func (m *Messenger) writeLine(s string) error {
	_, err := io.WriteString(m.rw, s+"\n")
	return err
}
