// Package adc provides raw analog acquisition: instantaneous channel samples
// from the MCU bridge and blocking averaged reads.
package adc

import "time"

const (
	// ADCMax is the full-scale value of the 10-bit converter on the MCU.
	ADCMax = 1023
	// VRef is the analog reference voltage. It cancels out of the resistance
	// formula but documents the front end.
	VRef = 5.0
	// NumChannels is the number of gas sensor channels streamed by the MCU.
	NumChannels = 4
)

// Source provides one instantaneous sample from an analog channel. There is
// no error path; implausible values are detected downstream.
type Source interface {
	Sample(channel uint8) int
}

// Sleeper abstracts the inter-sample delay so tests can run without waiting.
type Sleeper interface {
	Sleep(d time.Duration)
}

type sleepFunc func(d time.Duration)

func (f sleepFunc) Sleep(d time.Duration) { f(d) }

// RealSleeper blocks on the wall clock.
var RealSleeper Sleeper = sleepFunc(time.Sleep)

// ReadAveraged reads samples instantaneous values from channel, one every
// delay, and returns the truncating integer mean. It blocks the caller for
// roughly samples * delay.
func ReadAveraged(src Source, channel uint8, samples int, delay time.Duration, sleep Sleeper) int {
	if samples <= 0 {
		samples = 1
	}
	if sleep == nil {
		sleep = RealSleeper
	}

	sum := 0
	for i := 0; i < samples; i++ {
		sum += src.Sample(channel)
		if delay > 0 {
			sleep.Sleep(delay)
		}
	}
	return sum / samples
}
