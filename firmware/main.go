//go:build tinygo

//go:generate tinygo flash -target=arduino-mega2560

package main

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/bme280"
)

var (
	adcs [NUM_CHANNELS]machine.ADC
	uart = machine.UART0
	bme  bme280.Device

	// ADC averaging - running sums and counts per channel
	sums   [NUM_CHANNELS]uint32
	counts [NUM_CHANNELS]int

	// Timing
	start       time.Time
	lastADCRead time.Time

	// Serial buffer for reading relay commands
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for _, pin := range relayPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		pin.High() // Active-low module: start with every relay released
	}

	machine.InitADC()
	for i, pin := range adcPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
	}

	machine.I2C0.Configure(machine.I2CConfig{})
	bme = bme280.New(machine.I2C0)
	bme.Configure()

	start = time.Now()
	lastADCRead = start

	for {
		now := time.Now()

		// Check for relay commands (non-blocking)
		processSerial()

		// Read all channels at the same rate
		if now.Sub(lastADCRead) >= SAMPLE_INTERVAL_MS*time.Millisecond {
			for i := range adcs {
				// Get() is left-justified 16-bit; shift down to the native 10 bits
				sums[i] += uint32(adcs[i].Get() >> 6)
				counts[i]++
			}
			lastADCRead = now
		}

		if counts[0] >= NUM_SAMPLES {
			outputFrame(now)
			for i := range sums {
				sums[i] = 0
				counts[i] = 0
			}
		}

		// Small delay to prevent a tight loop while keeping timing precise
		time.Sleep(100 * time.Microsecond)
	}
}

// outputFrame emits one averaged frame.
// Format: "millis,a0,a1,a2,a3,temp,hum,press\n"
// Example: "123456,512,498,505,530,23.95,57.46,1016.12\n"
func outputFrame(now time.Time) {
	print(now.Sub(start).Milliseconds())

	for i := range sums {
		n := counts[i]
		if n == 0 {
			n = 1 // Avoid division by zero
		}
		print(",")
		print(sums[i] / uint32(n))
	}

	temp, _ := bme.ReadTemperature() // milli degrees C
	hum, _ := bme.ReadHumidity()     // hundredths of % RH
	press, _ := bme.ReadPressure()   // milli Pascal

	print(",")
	printFixed(temp, 1000)
	print(",")
	printFixed(hum, 100)
	print(",")
	printFixed(press, 100000) // milli Pa to hPa
	print("\n")
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			handleCommand(string(serialBuffer[:serialPos]))
			serialPos = 0
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			serialPos = 0 // Overflow, discard the line
		}
	}
}

// handleCommand parses "R<relay>,<0|1>" relay switch commands from the host.
func handleCommand(cmd string) {
	if len(cmd) != 4 || cmd[0] != 'R' || cmd[2] != ',' {
		return
	}

	relay := int(cmd[1] - '1')
	if relay < 0 || relay >= len(relayPins) {
		return
	}

	// Active-low module: energized means pin low
	if cmd[3] == '1' {
		relayPins[relay].Low()
	} else {
		relayPins[relay].High()
	}
}

// printFixed prints scaled/div with two decimal places, avoiding float
// formatting on the MCU.
func printFixed(scaled, div int32) {
	if scaled < 0 {
		print("-")
		scaled = -scaled
	}
	print(scaled / div)
	frac := (scaled % div) * 100 / div
	print(".")
	if frac < 10 {
		print("0")
	}
	print(frac)
}
