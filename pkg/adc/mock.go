package adc

import (
	"math/rand"
	"sync"

	"github.com/openrover/soilbox/pkg/config"
	"github.com/openrover/soilbox/pkg/telemetry"
)

// Mock simulates the MCU bridge for testing and development. Each channel
// sits at a configured baseline ADC level with uniform noise on top.
type Mock struct {
	cfg *config.MockConfig

	mu     sync.Mutex
	rng    *rand.Rand
	relays map[int]bool
}

var (
	_ Source             = (*Mock)(nil)
	_ telemetry.Provider = (*Mock)(nil)
)

// NewMock creates a new mocked bridge.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Levels:      []int{500, 480, 520, 510},
			Noise:       12,
			Temperature: 24.0,
			Humidity:    55.0,
			Pressure:    1013.25,
		}
	}

	return &Mock{
		cfg: cfg,
		rng: rand.New(rand.NewSource(1)),
	}
}

// Sample returns a noisy reading around the channel baseline. Channels
// without a configured level read 0, mimicking a disconnected sensor.
func (m *Mock) Sample(channel uint8) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if int(channel) >= len(m.cfg.Levels) {
		return 0
	}

	value := m.cfg.Levels[channel]
	if m.cfg.Noise > 0 {
		value += m.rng.Intn(m.cfg.Noise+1) - m.cfg.Noise/2
	}

	if value < 0 {
		value = 0
	}
	if value > ADCMax {
		value = ADCMax
	}
	return value
}

// SetRelay records the requested relay state. The mock has no hardware to
// switch.
func (m *Mock) SetRelay(relay int, energized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.relays == nil {
		m.relays = make(map[int]bool)
	}
	m.relays[relay] = energized
	return nil
}

// RelayState reports the last state recorded for relay.
func (m *Mock) RelayState(relay int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relays[relay]
}

// Read returns the configured static environmental snapshot.
func (m *Mock) Read() (telemetry.Reading, error) {
	return telemetry.Reading{
		Temperature: m.cfg.Temperature,
		Humidity:    m.cfg.Humidity,
		Pressure:    m.cfg.Pressure,
	}, nil
}
