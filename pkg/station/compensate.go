package station

import (
	"github.com/openrover/soilbox/pkg/config"
	"github.com/openrover/soilbox/pkg/telemetry"
)

// Compensate applies the linear temperature/humidity correction to one
// species' smoothed concentration. Higher temperature or humidity lowers the
// sensor resistance and inflates the raw reading, so the value is corrected
// down as conditions rise above the references, shifted by the baseline
// offset and clamped to the configured range. The constants are per-locale
// tuning, not a physical model.
func Compensate(raw float32, env telemetry.Reading, c config.CompensationConfig) float32 {
	tempFactor := 1 + (c.RefTemp-env.Temperature)*c.TempSlope
	humFactor := 1 + (c.RefHumidity-env.Humidity)*c.HumiditySlope

	value := raw*tempFactor*humFactor + c.Baseline

	if value < c.Min {
		value = c.Min
	}
	if value > c.Max {
		value = c.Max
	}
	return value
}
