package mq

// Status classifies a single-shot reading.
type Status uint8

const (
	// StatusOK is a calibrated, in-band reading.
	StatusOK Status = iota
	// StatusUncalibrated means no clean-air baseline has been committed yet.
	// The value reads as zero rather than an error.
	StatusUncalibrated
	// StatusDisconnected means the averaged ADC value fell outside the
	// plausible operating band: the sensor is unpowered or unplugged.
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusUncalibrated:
		return "uncalibrated"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Reading is one single-shot concentration with its classification. Callers
// branch on Status instead of comparing against sentinel floats.
type Reading struct {
	PPM    float32
	Status Status
}
