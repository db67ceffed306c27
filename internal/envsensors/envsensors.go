// Package envsensors implements the optional environmental sensor
// supplement: ambient temperature, pressure, and relative humidity read
// from a combined sensor. cmd/ivtracer samples it once a minute in a
// background goroutine and logs each reading; the readings are not tied
// to a sweep and are not added to the sweep report. It plays no part in
// the sweep algorithm itself.
//
// Adapted from the teacher's sensors.NewAtmosphere/GetHumidityAndPressure,
// narrowed to the one BME280-class combined sensor (periph.io/x/devices/v3
// bmxx80) and dropping the teacher's separate MCP9808 dedicated
// temperature sensor and htu21d humidity sensor, which have no counterpart
// requirement here — one combined sensor is enough context for a curve
// annotation. Enabling this component is what claims the NMax reduction
// described in internal/config's EffectiveNMax.
package envsensors

import (
	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// DefaultI2CAddr is the BME280's usual bus address (§ teacher's
// sensors.BMP280_I2C).
const DefaultI2CAddr = 0x76

// Sensor is the read capability this package needs from a combined
// pressure/humidity/temperature device. *bmxx80.Dev satisfies it.
type Sensor interface {
	Sense(env *physic.Env) error
}

// Reading is one ambient sample folded into a report as supplementary
// context.
type Reading struct {
	TemperatureC float64
	PressureHPa  float64
	HumidityPct  float64
}

// Station wraps a Sensor with the read-and-convert step the periodic
// poller in cmd/ivtracer calls.
type Station struct {
	sensor Sensor
}

// NewStation opens a BME280 on the given I2C bus at addr.
func NewStation(bus i2c.Bus, addr uint16) (*Station, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, err
	}
	return &Station{sensor: dev}, nil
}

// NewStationWithSensor wraps an already-constructed Sensor, used by tests
// to avoid needing real I2C hardware.
func NewStationWithSensor(s Sensor) *Station {
	return &Station{sensor: s}
}

// Sample reads the sensor once. A read failure is logged and reported as
// an error; no sweep result depends on this component.
func (s *Station) Sample() (Reading, error) {
	env := physic.Env{}
	if err := s.sensor.Sense(&env); err != nil {
		logger.Errorf("envsensors: read failed: %v", err)
		return Reading{}, err
	}
	return Reading{
		TemperatureC: env.Temperature.Celsius(),
		PressureHPa:  float64(env.Pressure) / float64(100*physic.Pascal),
		HumidityPct:  float64(env.Humidity) / float64(physic.PercentRH),
	}, nil
}
