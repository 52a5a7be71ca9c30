// Package telemetry provides the environmental snapshot consumed by the gas
// sensor pipeline for correction inputs and record passthrough fields.
package telemetry

import "errors"

// ErrUnavailable is returned when no environmental reading has been received yet.
var ErrUnavailable = errors.New("telemetry unavailable")

// Reading is one environmental snapshot.
type Reading struct {
	Temperature float32 // degrees Celsius
	Humidity    float32 // % relative humidity
	Pressure    float32 // hPa
}

// Provider supplies environmental readings, polled once per manager tick.
type Provider interface {
	Read() (Reading, error)
}

// Static is a fixed-value Provider for tests and mock runs.
type Static struct {
	Reading
}

func (s Static) Read() (Reading, error) {
	return s.Reading, nil
}
