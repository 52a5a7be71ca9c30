// Package mq implements the resistive gas sensor signal chain: averaged ADC
// reading, voltage-divider resistance, Rs/Ro ratio, log-log concentration
// and temporal smoothing. One Sensor per species; the calibration baseline
// and smoothing state are owned by the instance, never shared.
package mq

import (
	"github.com/chewxy/math32"

	"github.com/openrover/soilbox/pkg/adc"
)

const (
	// DisconnectedKohm is reported for an open circuit: effectively infinite
	// resistance, no gas or no power.
	DisconnectedKohm float32 = 999.9
	// SaturatedKohm is reported for a fully conductive, saturated sensor.
	SaturatedKohm float32 = 0.01
	// RatioUncalibrated marks a ratio computed before a baseline exists.
	RatioUncalibrated float32 = -1.0
)

// ResistanceKohm converts an averaged ADC reading into the sensor resistance
// in kΩ. The sensor and load resistor form a series divider read at their
// junction, so Rs = (ADCMax - adc)/adc * RL; the reference voltage cancels
// algebraically.
func ResistanceKohm(adcAvg int, loadOhms float32) float32 {
	if adcAvg <= 0 {
		return DisconnectedKohm
	}
	if adcAvg >= adc.ADCMax {
		return SaturatedKohm
	}
	return (float32(adc.ADCMax-adcAvg) / float32(adcAvg)) * (loadOhms / 1000.0)
}

// Ratio returns Rs/Ro, or RatioUncalibrated when the baseline is unset or
// either input is non-positive.
func Ratio(rsKohm, roKohm float32) float32 {
	if roKohm <= 0 || rsKohm <= 0 {
		return RatioUncalibrated
	}
	return rsKohm / roKohm
}

// PPM inverts the datasheet relation log10(Rs/Ro) = m*log10(ppm) + b.
// Degenerate inputs resolve to zero: a field instrument reports no gas
// rather than NaN.
func PPM(ratio, slope, intercept float32) float32 {
	if ratio <= 0 || slope == 0 {
		return 0
	}
	logPPM := (math32.Log10(ratio) - intercept) / slope
	return math32.Pow(10, logPPM)
}
