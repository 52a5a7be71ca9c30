//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 5 // ADC read interval in milliseconds, all channels
	NUM_SAMPLES        = 8 // Samples accumulated per output frame

	// Number of gas sensor channels
	NUM_CHANNELS = 4

	// Serial configuration
	// Frame format: "millis,a0,a1,a2,a3,temp,hum,press\n" = ~45 bytes max.
	// ~25 frames/sec * 45 bytes = 1,125 bytes/sec; 115200 baud leaves >10x headroom.
	UART_BAUD_RATE = 115200
)

// Gas sensor channels in manager order: MQ-4, MQ-136, MQ-8, MQ-135.
var adcPins = [NUM_CHANNELS]machine.Pin{
	machine.ADC0,
	machine.ADC1,
	machine.ADC2,
	machine.ADC3,
}

// Relay bank on the odd digital pins; the module is active-low.
var relayPins = [6]machine.Pin{
	machine.D35,
	machine.D37,
	machine.D39,
	machine.D41,
	machine.D43,
	machine.D45,
}
