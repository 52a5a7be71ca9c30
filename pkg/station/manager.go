// Package station orchestrates the gas sensor channels: the startup
// calibration pass and the per-tick record emission.
package station

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openrover/soilbox/pkg/adc"
	"github.com/openrover/soilbox/pkg/config"
	"github.com/openrover/soilbox/pkg/mq"
	"github.com/openrover/soilbox/pkg/record"
	"github.com/openrover/soilbox/pkg/telemetry"
)

// channel pairs a sensor with its record tag.
type channel struct {
	name   string
	sensor *mq.Sensor
}

// Manager owns one sensor per monitored species plus the environmental
// provider. Ticks are synchronous: species are read in configuration order
// on the caller's goroutine, so the signal chain needs no locking.
type Manager struct {
	site     int
	channels []channel
	env      telemetry.Provider
	cal      config.CalibrationConfig
	comp     config.CompensationConfig

	sensorOpts []mq.Option

	start time.Time
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithSensorOptions forwards options to every sensor the manager builds.
func WithSensorOptions(opts ...mq.Option) Option {
	return func(m *Manager) {
		m.sensorOpts = opts
	}
}

// New builds the manager and its sensor channels from configuration.
func New(cfg *config.Config, src adc.Source, env telemetry.Provider, opts ...Option) *Manager {
	m := &Manager{
		site: cfg.Site,
		env:  env,
		cal:  cfg.Calibration,
		comp: cfg.Compensation,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	for _, ch := range cfg.Channels {
		m.channels = append(m.channels, channel{
			name:   ch.Name,
			sensor: mq.NewSensor(ch, cfg.Acquisition, cfg.Filter, src, m.sensorOpts...),
		})
	}

	m.start = m.now()

	return m
}

// CalibrateAll runs the blocking clean-air calibration for every channel in
// order. It must complete before polling starts; total duration is additive
// across channels.
func (m *Manager) CalibrateAll() {
	log.Info("Calibrating gas sensors in clean air...")

	for _, ch := range m.channels {
		ro := ch.sensor.Calibrate(m.cal.Samples, m.cal.SampleDelay)
		if ro > 0 {
			log.Infof("%s Ro: %.2f kOhm", ch.name, ro)
		} else {
			log.Warnf("%s left uncalibrated", ch.name)
		}
	}

	log.Info("Calibration complete")
}

// Tick reads every species in fixed order and returns one record per species
// plus the environmental passthrough records. Malfunctioning channels still
// emit records with stale or zero values, so the stream never changes shape.
func (m *Manager) Tick() ([]record.Record, error) {
	env, err := m.env.Read()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	t := m.uptimeMs()

	records := make([]record.Record, 0, len(m.channels)+3)
	for _, ch := range m.channels {
		value := ch.sensor.ReadSmoothed()
		if ch.name == m.comp.Sensor {
			value = Compensate(value, env, m.comp)
		}
		records = append(records, record.Record{
			TimeMs: t,
			Site:   m.site,
			Sensor: ch.name,
			Value:  value,
			Digits: 3,
			Unit:   "ppm",
			Env:    env,
		})
	}

	records = append(records,
		record.Record{TimeMs: t, Site: m.site, Sensor: "BME_TEMP", Value: env.Temperature, Digits: 2, Unit: "C", Env: env},
		record.Record{TimeMs: t, Site: m.site, Sensor: "BME_HUM", Value: env.Humidity, Digits: 2, Unit: "%", Env: env},
		record.Record{TimeMs: t, Site: m.site, Sensor: "BME_PRESS", Value: env.Pressure, Digits: 2, Unit: "hPa", Env: env},
	)

	return records, nil
}

func (m *Manager) uptimeMs() uint32 {
	return uint32(m.now().Sub(m.start).Milliseconds())
}
