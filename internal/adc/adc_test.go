package adc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	conn "periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

type fakeConn struct {
	rx  []byte
	err error
}

func (f *fakeConn) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	copy(r, f.rx)
	return nil
}
func (f *fakeConn) Duplex() conn.Duplex       { return conn.Full }
func (f *fakeConn) String() string            { return "fake" }
func (f *fakeConn) TxPackets(p []spi.Packet) error { return nil }

func TestDecodeCountMasksTo12Bits(t *testing.T) {
	assert.Equal(t, uint16(0x0FFF), decodeCount([]byte{0, 0xFF, 0xFF}))
	assert.Equal(t, uint16(0), decodeCount([]byte{0, 0x00, 0x00}))
	assert.Equal(t, uint16(0x0ABC), decodeCount([]byte{0, 0x0A, 0xBC}))
}

func TestCommandBytesSelectsChannel(t *testing.T) {
	v := commandBytes(Voltage)
	i := commandBytes(Current)
	require.NotEqual(t, v[1], i[1])
}

func TestReadReturnsMaskedCount(t *testing.T) {
	d := New(&fakeConn{rx: []byte{0, 0x0F, 0xFF}})
	v, err := d.Read(Voltage)
	require.NoError(t, err)
	assert.Equal(t, uint16(MaxCount), v)
}

func TestReadPropagatesTransportError(t *testing.T) {
	d := New(&fakeConn{err: assertErr{}})
	_, err := d.Read(Current)
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "bus fault" }
