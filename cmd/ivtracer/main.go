// Command ivtracer runs the I-V curve tracer firmware port: it opens the
// SPI ADC and GPIO relay lines, loads the config store, and serves the
// host line protocol over a serial port, optionally fanning completed
// sweeps out to Prometheus, MQTT, and a webhook sink.
//
// Grounded on the teacher's main.go: flag-driven startup, logrus logging
// throughout, background goroutines for ambient services, and a
// promhttp.Handler()-backed metrics endpoint served over http.ListenAndServe.
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/gr-butler/ivtracer/internal/adc"
	"github.com/gr-butler/ivtracer/internal/config"
	"github.com/gr-butler/ivtracer/internal/config/pgstore"
	"github.com/gr-butler/ivtracer/internal/envsensors"
	"github.com/gr-butler/ivtracer/internal/messenger"
	"github.com/gr-butler/ivtracer/internal/relay"
	"github.com/gr-butler/ivtracer/internal/report"
	"github.com/gr-butler/ivtracer/internal/supervisor"
	"github.com/gr-butler/ivtracer/internal/telemetry/history"
	"github.com/gr-butler/ivtracer/internal/telemetry/mqtt"
	"github.com/gr-butler/ivtracer/internal/telemetry/prom"
	"github.com/gr-butler/ivtracer/internal/telemetry/webhook"
)

const version = "ivtracer-1.0.0"

// calibratorProxy breaks the construction cycle between config.Store
// (which needs a Calibrator at construction) and Supervisor (which needs
// a *config.Store already built): the proxy is handed to NewStore first,
// then pointed at the real Supervisor once it exists.
type calibratorProxy struct {
	target config.Calibrator
}

func (p *calibratorProxy) RunSSRCurrentCal() (float64, bool, error) {
	if p.target == nil {
		return 0, false, nil
	}
	return p.target.RunSSRCurrentCal()
}

func main() {
	logger.Infof("Starting %s", version)

	spiPort := flag.String("spi", "SPI0.0", "SPI port name for the ADC")
	serialPort := flag.String("serial", "/dev/ttyAMA0", "serial device for the host protocol")
	baud := flag.Int("baud", 57600, "serial baud rate")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	pgDSN := flag.String("pg-dsn", "", "Postgres DSN for the config store; empty uses in-memory EEPROM emulation")
	mqttBroker := flag.String("mqtt-broker", "", "MQTT broker URL; empty disables MQTT reporting")
	webhookURL := flag.String("webhook-url", "", "webhook base URL; empty disables webhook reporting")
	yamlDefaults := flag.String("defaults", "", "YAML file overlaying compiled-in tunable defaults")
	sensorsEnabled := flag.Bool("env-sensors", false, "enable post-sweep environmental sensor reporting")
	i2cBus := flag.String("i2c", "", "I2C bus name for the environmental sensor; empty uses the default bus")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		logger.Fatalf("periph host init failed: %v", err)
	}

	spiConn, err := spireg.Open(*spiPort)
	if err != nil {
		logger.Fatalf("failed to open SPI port %s: %v", *spiPort, err)
	}
	defer spiConn.Close()
	adcConn, err := spiConn.Connect(1*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		logger.Fatalf("failed to configure SPI ADC connection: %v", err)
	}
	adcDev := adc.New(adcConn)

	relLines := relay.Lines{
		Primary:   gpioreg.ByName("GPIO17"),
		Secondary: gpioreg.ByName("GPIO27"),
		SSR2:      gpioreg.ByName("GPIO22"),
		SSR3:      gpioreg.ByName("GPIO23"),
		SSR4:      gpioreg.ByName("GPIO24"),
		SSR6:      gpioreg.ByName("GPIO25"),
	}
	relSeq := relay.New(relLines, true)

	var persist config.PersistentStore
	if *pgDSN != "" {
		pg, err := pgstore.Open(context.Background(), *pgDSN)
		if err != nil {
			logger.Fatalf("failed to open Postgres config store: %v", err)
		}
		defer pg.Close()
		persist = pg
	} else {
		persist = config.NewEEPROM()
	}

	calProxy := &calibratorProxy{}
	store := config.NewStore(persist, relSeq, calProxy, *sensorsEnabled)
	relSeq.SetPolarity(store.PolarityActiveHigh())

	if *yamlDefaults != "" {
		fd, err := config.LoadFileDefaults(*yamlDefaults)
		if err != nil {
			logger.Fatalf("failed to load default overrides %s: %v", *yamlDefaults, err)
		}
		store.SeedDefaults(fd)
	}

	promSink := prom.NewSink()
	histSink := history.NewRing(64)
	observers := []report.Observer{promSink, histSink}

	if *mqttBroker != "" {
		mqttSink, err := mqtt.NewSink(*mqttBroker, "ivtracer", "ivtracer/report")
		if err != nil {
			logger.Errorf("mqtt sink disabled: %v", err)
		} else {
			defer mqttSink.Close()
			observers = append(observers, mqttSink)
		}
	}
	if *webhookURL != "" {
		observers = append(observers, webhook.NewSink(*webhookURL))
	}
	fanout := report.NewFanout(observers...)

	sv := supervisor.New(store, relSeq, adcDev, fanout)
	calProxy.target = sv

	if *sensorsEnabled {
		go runEnvSensors(*i2cBus)
	}

	go func() {
		http.Handle("/metrics", promSink.Handler())
		logger.Fatal(http.ListenAndServe(*metricsAddr, nil))
	}()

	serveSerial(*serialPort, *baud, sv)
}

func serveSerial(portName string, baud int, dispatcher messenger.Dispatcher) {
	port, err := messenger.OpenSerial(portName, baud)
	if err != nil {
		logger.Fatalf("failed to open serial port %s: %v", portName, err)
	}
	defer port.Close()

	m := messenger.New(port, time.Duration(config.MsgTimerTimeoutTicks)*time.Millisecond, dispatcher)
	for {
		if err := m.ServeOne(); err != nil {
			logger.Errorf("messenger: serve error: %v", err)
			return
		}
	}
}

func runEnvSensors(busName string) {
	bus, err := i2creg.Open(busName)
	if err != nil {
		logger.Errorf("envsensors: failed to open I2C bus %s: %v", busName, err)
		return
	}
	defer bus.Close()

	station, err := envsensors.NewStation(bus, envsensors.DefaultI2CAddr)
	if err != nil {
		logger.Errorf("envsensors: failed to open sensor: %v", err)
		return
	}

	for range time.Tick(time.Minute) {
		reading, err := station.Sample()
		if err != nil {
			continue
		}
		logger.Infof("envsensors: temp=%.1fC pressure=%.1fhPa humidity=%.1f%%",
			reading.TemperatureC, reading.PressureHPa, reading.HumidityPct)
	}
}
