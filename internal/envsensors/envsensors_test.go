package envsensors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

type fakeSensor struct {
	env physic.Env
	err error
}

func (f *fakeSensor) Sense(env *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	*env = f.env
	return nil
}

func TestSampleConvertsUnits(t *testing.T) {
	env := physic.Env{}
	env.Temperature = physic.ZeroCelsius + 25*physic.Kelvin
	env.Pressure = 101325 * physic.Pascal
	env.Humidity = 45 * physic.PercentRH

	s := NewStationWithSensor(&fakeSensor{env: env})
	r, err := s.Sample()
	require.NoError(t, err)

	assert.InDelta(t, 25.0, r.TemperatureC, 0.5)
	assert.InDelta(t, 1013.25, r.PressureHPa, 0.5)
	assert.InDelta(t, 45.0, r.HumidityPct, 0.5)
}

func TestSamplePropagatesSensorError(t *testing.T) {
	s := NewStationWithSensor(&fakeSensor{err: errors.New("i2c bus fault")})
	_, err := s.Sample()
	require.Error(t, err)
}
