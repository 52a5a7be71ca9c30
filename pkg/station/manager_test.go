package station

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrover/soilbox/pkg/config"
	"github.com/openrover/soilbox/pkg/mq"
	"github.com/openrover/soilbox/pkg/telemetry"
)

type stubSource struct {
	values map[uint8]int
}

func (s stubSource) Sample(channel uint8) int {
	return s.values[channel]
}

type noopSleeper struct{}

func (noopSleeper) Sleep(d time.Duration) {}

type failingProvider struct{}

func (failingProvider) Read() (telemetry.Reading, error) {
	return telemetry.Reading{}, errors.New("sensor gone")
}

func referenceEnv(cfg *config.Config) telemetry.Static {
	return telemetry.Static{Reading: telemetry.Reading{
		Temperature: cfg.Compensation.RefTemp,
		Humidity:    cfg.Compensation.RefHumidity,
		Pressure:    1013.25,
	}}
}

func newTestManager(t *testing.T, src stubSource, env telemetry.Provider, opts ...Option) (*Manager, *config.Config) {
	t.Helper()

	cfg := config.Default()
	opts = append(opts, WithSensorOptions(mq.WithSleeper(noopSleeper{})))
	return New(cfg, src, env, opts...), cfg
}

func TestManager_TickShape(t *testing.T) {
	src := stubSource{values: map[uint8]int{0: 500, 1: 480, 2: 520, 3: 510}}
	m, cfg := newTestManager(t, src, referenceEnv(config.Default()))

	records, err := m.Tick()
	require.NoError(t, err)
	require.Len(t, records, len(cfg.Channels)+3)

	wantOrder := []string{"MQ4_CH4", "MQ136_H2S", "MQ8_H2", "MQ135_CO2", "BME_TEMP", "BME_HUM", "BME_PRESS"}
	for i, want := range wantOrder {
		assert.Equal(t, want, records[i].Sensor)
		assert.Equal(t, cfg.Site, records[i].Site)
	}

	for _, r := range records[:len(cfg.Channels)] {
		assert.Equal(t, "ppm", r.Unit)
		assert.Equal(t, 3, r.Digits)
	}
	for _, r := range records[len(cfg.Channels):] {
		assert.Equal(t, 2, r.Digits)
	}
	assert.Equal(t, "C", records[4].Unit)
	assert.Equal(t, "%", records[5].Unit)
	assert.Equal(t, "hPa", records[6].Unit)
}

func TestManager_TickTimestamps(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	current := base
	now := func() time.Time { return current }

	src := stubSource{values: map[uint8]int{0: 500, 1: 480, 2: 520, 3: 510}}
	m, _ := newTestManager(t, src, referenceEnv(config.Default()), WithNow(now))

	records, err := m.Tick()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), records[0].TimeMs)

	current = base.Add(2 * time.Second)
	records, err = m.Tick()
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), records[0].TimeMs)
}

func TestManager_TickEnvironmentError(t *testing.T) {
	src := stubSource{values: map[uint8]int{0: 500}}
	m, _ := newTestManager(t, src, failingProvider{})

	_, err := m.Tick()
	assert.Error(t, err)
}

func TestManager_UncalibratedCompensatedChannelReadsBaseline(t *testing.T) {
	// Before calibration every species reads zero; the compensated channel
	// still emits the additive baseline.
	src := stubSource{values: map[uint8]int{0: 500, 1: 480, 2: 520, 3: 510}}
	m, cfg := newTestManager(t, src, referenceEnv(config.Default()))

	records, err := m.Tick()
	require.NoError(t, err)

	for _, r := range records[:3] {
		assert.Zero(t, r.Value, r.Sensor)
	}
	assert.Equal(t, "MQ135_CO2", records[3].Sensor)
	assert.InDelta(t, cfg.Compensation.Baseline, records[3].Value, 0.01)
}

func TestManager_CalibrateAllEnablesReadings(t *testing.T) {
	src := stubSource{values: map[uint8]int{0: 500, 1: 480, 2: 520, 3: 510}}
	m, _ := newTestManager(t, src, referenceEnv(config.Default()))

	m.CalibrateAll()

	records, err := m.Tick()
	require.NoError(t, err)

	for _, r := range records[:4] {
		assert.Positive(t, r.Value, r.Sensor)
	}
}

func TestCompensate(t *testing.T) {
	cfg := config.Default().Compensation
	refEnv := telemetry.Reading{Temperature: cfg.RefTemp, Humidity: cfg.RefHumidity}

	tests := []struct {
		name string
		raw  float32
		env  telemetry.Reading
		want float32
	}{
		{
			name: "reference conditions pass through with baseline",
			raw:  100,
			env:  refEnv,
			want: 500,
		},
		{
			name: "cold inflates the correction factor",
			raw:  100,
			env:  telemetry.Reading{Temperature: 10, Humidity: cfg.RefHumidity},
			want: 520, // 100 * (1 + 10*0.02) + 400
		},
		{
			name: "dry air inflates the correction factor",
			raw:  100,
			env:  telemetry.Reading{Temperature: cfg.RefTemp, Humidity: 40},
			want: 520, // 100 * (1 + 20*0.01) + 400
		},
		{
			name: "clamped to lower bound",
			raw:  -500,
			env:  refEnv,
			want: cfg.Min,
		},
		{
			name: "clamped to upper bound",
			raw:  100000,
			env:  refEnv,
			want: cfg.Max,
		},
		{
			name: "zero raw reads as baseline",
			raw:  0,
			env:  refEnv,
			want: cfg.Baseline,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Compensate(tt.raw, tt.env, cfg), 0.01)
		})
	}
}
