package prom

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gr-butler/ivtracer/internal/report"
)

func TestObserveSetsGauges(t *testing.T) {
	s := NewSink()
	err := s.Observe(report.SweepReport{
		Isc: 500, Voc: 4000,
		Points:       []report.Point{{V: 0, I: 500}, {V: 100, I: 490}},
		NumMeas:      42,
		ElapsedUsecs: 1234,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(500), testutil.ToFloat64(s.isc))
	assert.Equal(t, float64(4000), testutil.ToFloat64(s.voc))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.points))
	assert.Equal(t, float64(42), testutil.ToFloat64(s.measurements))
	assert.Equal(t, float64(1234), testutil.ToFloat64(s.elapsedUsecs))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.sweeps))
}

func TestObserveIncrementsSweepCounter(t *testing.T) {
	s := NewSink()
	_ = s.Observe(report.SweepReport{})
	_ = s.Observe(report.SweepReport{})
	assert.Equal(t, float64(2), testutil.ToFloat64(s.sweeps))
}

func TestHandlerServesMetrics(t *testing.T) {
	s := NewSink()
	_ = s.Observe(report.SweepReport{Isc: 1})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "ivtracer_isc_adc_counts")
}
