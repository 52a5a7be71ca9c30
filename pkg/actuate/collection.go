package actuate

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/openrover/soilbox/pkg/config"
)

// Collection is the fixed soil collection sequence: lower the main arm,
// drill into the soil, retract with the sample, raise the arm. Open loop,
// blocking for its full duration, no cancellation once started.
type Collection struct {
	ctl          *Controller
	platformMove time.Duration
	drillTime    time.Duration
	settle       time.Duration
}

var _ Sequencer = (*Collection)(nil)

// NewCollection builds the sequence with timings from configuration.
func NewCollection(ctl *Controller, cfg config.ActuationConfig) *Collection {
	return &Collection{
		ctl:          ctl,
		platformMove: cfg.PlatformMove,
		drillTime:    cfg.Drill,
		settle:       cfg.Settle,
	}
}

// Run executes the sequence.
func (s *Collection) Run() error {
	log.Info("Soil collection sequence starting")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"lowering platform 1", func() error { return s.ctl.Pulse(RelayPlatform1Down, s.platformMove) }},
		{"starting drill", func() error { return s.ctl.On(RelayDrill) }},
		{"lowering platform 2 into soil", func() error { return s.ctl.Pulse(RelayPlatform2Down, s.platformMove) }},
		{"drilling", func() error { s.ctl.sleep.Sleep(s.drillTime); return nil }},
		{"retracting platform 2 with soil", func() error { return s.ctl.Pulse(RelayPlatform2Up, s.platformMove) }},
		{"stopping drill", func() error { return s.ctl.Off(RelayDrill) }},
		{"raising platform 1", func() error { return s.ctl.Pulse(RelayPlatform1Up, s.platformMove) }},
	}

	for i, step := range steps {
		log.Infof("[%d/%d] %s", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if s.settle > 0 && i < len(steps)-1 {
			s.ctl.sleep.Sleep(s.settle)
		}
	}

	log.Info("Soil collection complete")
	return nil
}
