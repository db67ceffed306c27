package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-butler/ivtracer/internal/report"
)

func TestRecentReturnsNewestFirst(t *testing.T) {
	r := NewRing(3)
	require.NoError(t, r.Observe(report.SweepReport{Isc: 1}))
	require.NoError(t, r.Observe(report.SweepReport{Isc: 2}))
	require.NoError(t, r.Observe(report.SweepReport{Isc: 3}))

	entries := r.Recent(3)
	require.Len(t, entries, 3)
	assert.Equal(t, uint16(3), entries[0].Isc)
	assert.Equal(t, uint16(2), entries[1].Isc)
	assert.Equal(t, uint16(1), entries[2].Isc)
}

func TestRingWrapsOnOverflow(t *testing.T) {
	r := NewRing(2)
	require.NoError(t, r.Observe(report.SweepReport{Isc: 1}))
	require.NoError(t, r.Observe(report.SweepReport{Isc: 2}))
	require.NoError(t, r.Observe(report.SweepReport{Isc: 3}))

	entries := r.Recent(2)
	require.Len(t, entries, 2)
	assert.Equal(t, uint16(3), entries[0].Isc)
	assert.Equal(t, uint16(2), entries[1].Isc)
}

func TestRecentCapsAtFilledCount(t *testing.T) {
	r := NewRing(5)
	require.NoError(t, r.Observe(report.SweepReport{Isc: 7}))

	entries := r.Recent(5)
	assert.Len(t, entries, 1)
}
