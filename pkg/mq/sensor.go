package mq

import (
	"time"

	"github.com/openrover/soilbox/pkg/adc"
	"github.com/openrover/soilbox/pkg/config"
)

// Curve holds the log-log calibration constants for one gas species and its
// documented clean-air Rs/Ro ratio.
type Curve struct {
	Slope         float32
	Intercept     float32
	CleanAirRatio float32
}

// Sensor is one resistive gas sensor channel.
type Sensor struct {
	src   adc.Source
	sleep adc.Sleeper

	channel  uint8
	loadOhms float32
	curve    Curve

	samples     int
	sampleDelay time.Duration
	minADC      int
	maxADC      int

	ro     float32 // clean-air baseline, kΩ; <= 0 until calibrated
	filter *Filter
}

// Option configures a Sensor.
type Option func(*Sensor)

// WithSleeper replaces the blocking sleeper, for tests.
func WithSleeper(s adc.Sleeper) Option {
	return func(sensor *Sensor) {
		sensor.sleep = s
	}
}

// NewSensor builds a sensor channel from its configuration. The sensor stays
// uncalibrated until Calibrate commits a baseline.
func NewSensor(cfg config.ChannelConfig, acq config.AcquisitionConfig, filter config.FilterConfig, src adc.Source, opts ...Option) *Sensor {
	s := &Sensor{
		src:         src,
		sleep:       adc.RealSleeper,
		channel:     cfg.Channel,
		loadOhms:    cfg.LoadOhms,
		curve:       Curve{Slope: cfg.Slope, Intercept: cfg.Intercept, CleanAirRatio: cfg.CleanAirRatio},
		samples:     acq.Samples,
		sampleDelay: acq.SampleDelay,
		minADC:      acq.MinADC,
		maxADC:      acq.MaxADC,
		ro:          -1,
		filter:      NewFilter(filter.Alpha, filter.SpikeThreshold, filter.NoiseFloor),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Channel returns the ADC channel index of this sensor.
func (s *Sensor) Channel() uint8 {
	return s.channel
}

// Ro returns the clean-air baseline in kΩ. Non-positive means uncalibrated.
func (s *Sensor) Ro() float32 {
	return s.ro
}

// SetRo overrides the baseline, e.g. when restoring a previously measured
// value instead of re-running the clean-air procedure.
func (s *Sensor) SetRo(ro float32) {
	s.ro = ro
}

// Calibrated reports whether a clean-air baseline has been committed.
func (s *Sensor) Calibrated() bool {
	return s.ro > 0
}

// ReadAveraged returns the averaged raw ADC value for this channel using the
// configured sample count and inter-sample delay. Blocking.
func (s *Sensor) ReadAveraged() int {
	return adc.ReadAveraged(s.src, s.channel, s.samples, s.sampleDelay, s.sleep)
}

// MeasureCleanAirKohm averages the divider resistance over samples fresh
// reads. The caller guarantees gas-free ambient air and a completed thermal
// warm-up; nothing here can verify either.
func (s *Sensor) MeasureCleanAirKohm(samples int, delay time.Duration) float32 {
	if samples <= 0 {
		samples = 1
	}

	var sum float32
	for i := 0; i < samples; i++ {
		sum += ResistanceKohm(s.src.Sample(s.channel), s.loadOhms)
		if delay > 0 {
			s.sleep.Sleep(delay)
		}
	}
	return sum / float32(samples)
}

// Calibrate measures the clean-air resistance and commits the baseline
// Ro = Rs_clean / cleanAirRatio. A non-positive measurement or ratio leaves
// the previous baseline untouched, so a transient bad read cannot wipe an
// existing calibration. Blocks for roughly samples * delay.
func (s *Sensor) Calibrate(samples int, delay time.Duration) float32 {
	rs := s.MeasureCleanAirKohm(samples, delay)
	if rs > 0 && s.curve.CleanAirRatio > 0 {
		s.ro = rs / s.curve.CleanAirRatio
	}
	return s.ro
}

// Read performs one single-shot measurement through the full chain: averaged
// ADC, resistance, ratio, concentration.
func (s *Sensor) Read() Reading {
	if !s.Calibrated() {
		return Reading{Status: StatusUncalibrated}
	}

	avg := s.ReadAveraged()

	// Floating inputs read far below or above the plausible band.
	if avg < s.minADC || avg > s.maxADC {
		return Reading{Status: StatusDisconnected}
	}

	rs := ResistanceKohm(avg, s.loadOhms)
	ratio := Ratio(rs, s.ro)

	return Reading{PPM: PPM(ratio, s.curve.Slope, s.curve.Intercept), Status: StatusOK}
}

// ReadSmoothed performs one measurement and feeds it through the temporal
// filter, returning the smoothed estimate.
func (s *Sensor) ReadSmoothed() float32 {
	return s.filter.Update(s.Read())
}
