package adc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrover/soilbox/pkg/config"
)

// seqSource replays a fixed sequence of values.
type seqSource struct {
	values []int
	i      int
}

func (s *seqSource) Sample(channel uint8) int {
	v := s.values[s.i%len(s.values)]
	s.i++
	return v
}

type countingSleeper struct {
	slept []time.Duration
}

func (c *countingSleeper) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
}

func TestReadAveraged(t *testing.T) {
	src := &seqSource{values: []int{500, 502, 498, 501, 500, 499, 503, 497}}
	sleeper := &countingSleeper{}

	got := ReadAveraged(src, 0, 8, 5*time.Millisecond, sleeper)

	// 4000 / 8
	assert.Equal(t, 500, got)
	assert.Len(t, sleeper.slept, 8)
	assert.Equal(t, 5*time.Millisecond, sleeper.slept[0])
}

func TestReadAveraged_TruncatingMean(t *testing.T) {
	src := &seqSource{values: []int{1, 2}}
	sleeper := &countingSleeper{}

	// (1+2)/2 truncates to 1.
	assert.Equal(t, 1, ReadAveraged(src, 0, 2, time.Millisecond, sleeper))
}

func TestReadAveraged_ZeroSamples(t *testing.T) {
	src := &seqSource{values: []int{700}}
	sleeper := &countingSleeper{}

	got := ReadAveraged(src, 0, 0, time.Millisecond, sleeper)

	assert.Equal(t, 700, got, "non-positive sample counts fall back to a single read")
	assert.Len(t, sleeper.slept, 1)
}

func TestReadAveraged_ZeroDelaySkipsSleep(t *testing.T) {
	src := &seqSource{values: []int{500}}
	sleeper := &countingSleeper{}

	ReadAveraged(src, 0, 4, 0, sleeper)
	assert.Empty(t, sleeper.slept)
}

func TestParseFrame(t *testing.T) {
	frame, err := parseFrame("123456,512,498,505,530,23.95,57.46,1016.12")
	require.NoError(t, err)

	assert.Equal(t, uint32(123456), frame.Millis)
	assert.Equal(t, [NumChannels]int{512, 498, 505, 530}, frame.ADC)
	assert.InDelta(t, 23.95, frame.Env.Temperature, 0.001)
	assert.InDelta(t, 57.46, frame.Env.Humidity, 0.001)
	assert.InDelta(t, 1016.12, frame.Env.Pressure, 0.001)
}

func TestParseFrame_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "too few fields", line: "123,512,498,505,23.9,57.4,1016.1"},
		{name: "too many fields", line: "123,512,498,505,530,1,23.9,57.4,1016.1"},
		{name: "bad timestamp", line: "abc,512,498,505,530,23.9,57.4,1016.1"},
		{name: "negative timestamp", line: "-1,512,498,505,530,23.9,57.4,1016.1"},
		{name: "bad adc value", line: "123,x,498,505,530,23.9,57.4,1016.1"},
		{name: "adc above full scale", line: "123,1024,498,505,530,23.9,57.4,1016.1"},
		{name: "negative adc", line: "123,-5,498,505,530,23.9,57.4,1016.1"},
		{name: "bad environment field", line: "123,512,498,505,530,hot,57.4,1016.1"},
		{name: "empty", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrame(tt.line)
			assert.Error(t, err)
		})
	}
}

func TestMock_SampleWithinRange(t *testing.T) {
	m := NewMock(&config.MockConfig{
		Levels: []int{500, 480, 520, 510},
		Noise:  12,
	})

	for ch := uint8(0); ch < NumChannels; ch++ {
		for i := 0; i < 100; i++ {
			v := m.Sample(ch)
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, ADCMax)
		}
	}
}

func TestMock_UnconfiguredChannelReadsZero(t *testing.T) {
	m := NewMock(&config.MockConfig{Levels: []int{500}})

	assert.Equal(t, 0, m.Sample(3))
}

func TestMock_NoNoiseIsDeterministic(t *testing.T) {
	m := NewMock(&config.MockConfig{Levels: []int{500}})

	for i := 0; i < 10; i++ {
		assert.Equal(t, 500, m.Sample(0))
	}
}

func TestMock_Environment(t *testing.T) {
	m := NewMock(&config.MockConfig{
		Levels:      []int{500},
		Temperature: 23.95,
		Humidity:    57.46,
		Pressure:    1016.12,
	})

	env, err := m.Read()
	require.NoError(t, err)
	assert.InDelta(t, 23.95, env.Temperature, 0.001)
	assert.InDelta(t, 57.46, env.Humidity, 0.001)
	assert.InDelta(t, 1016.12, env.Pressure, 0.001)
}

func TestMock_Relays(t *testing.T) {
	m := NewMock(nil)

	assert.False(t, m.RelayState(5))
	require.NoError(t, m.SetRelay(5, true))
	assert.True(t, m.RelayState(5))
	require.NoError(t, m.SetRelay(5, false))
	assert.False(t, m.RelayState(5))
}
