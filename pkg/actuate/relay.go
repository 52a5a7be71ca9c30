// Package actuate drives the relay bank behind the soil collection
// hardware. It is an independent, open-loop subsystem: the sensor core never
// calls in and nothing here feeds back into the signal chain.
package actuate

import (
	"fmt"
	"time"

	"github.com/openrover/soilbox/pkg/adc"
)

// NumRelays is the size of the relay bank.
const NumRelays = 6

// Relay assignments on the bank, 1-based like the silkscreen.
const (
	RelayPlatform1Up   = 1
	RelayPlatform1Down = 2
	RelayPlatform2Down = 3
	RelayPlatform2Up   = 4
	RelayDrill         = 5
	RelayLift          = 6
)

// Driver sets the physical state of one relay. Implementations hide the
// active-low wiring of the module.
type Driver interface {
	SetRelay(relay int, energized bool) error
}

// Sequencer runs a fixed open-loop actuation sequence.
type Sequencer interface {
	Run() error
}

// Controller tracks and switches the relay bank.
type Controller struct {
	drv    Driver
	sleep  adc.Sleeper
	states [NumRelays]bool
}

// NewController creates a controller over drv. A nil sleeper means real
// blocking sleeps.
func NewController(drv Driver, sleep adc.Sleeper) *Controller {
	if sleep == nil {
		sleep = adc.RealSleeper
	}
	return &Controller{drv: drv, sleep: sleep}
}

// On energizes relay (1-based).
func (c *Controller) On(relay int) error {
	return c.set(relay, true)
}

// Off releases relay (1-based).
func (c *Controller) Off(relay int) error {
	return c.set(relay, false)
}

func (c *Controller) set(relay int, on bool) error {
	if relay < 1 || relay > NumRelays {
		return fmt.Errorf("invalid relay number: %d", relay)
	}
	if err := c.drv.SetRelay(relay, on); err != nil {
		return fmt.Errorf("switching relay %d: %w", relay, err)
	}
	c.states[relay-1] = on
	return nil
}

// Pulse holds relay on for the duration, then releases it. Blocking.
func (c *Controller) Pulse(relay int, d time.Duration) error {
	if err := c.On(relay); err != nil {
		return err
	}
	c.sleep.Sleep(d)
	return c.Off(relay)
}

// AllOff releases every relay. Run at startup so motors never start on a
// stale state, and usable as an emergency stop.
func (c *Controller) AllOff() error {
	for i := 1; i <= NumRelays; i++ {
		if err := c.Off(i); err != nil {
			return err
		}
	}
	return nil
}

// State reports whether relay is energized.
func (c *Controller) State(relay int) bool {
	if relay < 1 || relay > NumRelays {
		return false
	}
	return c.states[relay-1]
}
