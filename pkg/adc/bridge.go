package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/openrover/soilbox/pkg/telemetry"
)

// DefaultBaudRate is the baud rate of the MCU frame stream.
const DefaultBaudRate = 115200

// Frame is one parsed line from the MCU: uptime, the four instantaneous ADC
// values and the BME280 snapshot.
type Frame struct {
	Millis uint32
	ADC    [NumChannels]int
	Env    telemetry.Reading
}

// Bridge reads the MCU frame stream from a serial port and holds the latest
// frame as a register. It serves instantaneous samples to the acquisition
// layer and the environmental snapshot to the manager.
type Bridge struct {
	port     string
	baudRate int

	conn      serial.Port
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	frame     Frame
	haveFrame bool
}

var (
	_ Source             = (*Bridge)(nil)
	_ telemetry.Provider = (*Bridge)(nil)
)

// NewBridge creates a bridge for the given serial port.
func NewBridge(port string, baudRate int) *Bridge {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Bridge{
		port:     port,
		baudRate: baudRate,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Connect opens the serial port and starts reading frames.
func (b *Bridge) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: b.baudRate,
	}

	port, err := serial.Open(b.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", b.port, err)
	}

	b.conn = port
	b.connected = true

	go b.readFrames()

	return nil
}

// Close closes the serial port and stops the reader.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil
	}

	b.cancel()

	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			log.Errorf("Error closing serial port: %v", err)
		}
		b.conn = nil
	}

	b.connected = false

	return nil
}

// IsConnected returns whether the bridge is currently connected.
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

// Sample returns the latest value received for channel. Before the first
// frame, or for an unknown channel, it returns 0 which reads as a
// disconnected sensor downstream.
func (b *Bridge) Sample(channel uint8) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.haveFrame || int(channel) >= NumChannels {
		return 0
	}
	return b.frame.ADC[channel]
}

// Read returns the environmental snapshot from the latest frame. It
// implements telemetry.Provider.
func (b *Bridge) Read() (telemetry.Reading, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.haveFrame {
		return telemetry.Reading{}, telemetry.ErrUnavailable
	}
	return b.frame.Env, nil
}

// SetRelay sends a relay switch command to the MCU.
// Command format: "R<relay>,<0|1>\n", e.g. "R5,1" energizes relay 5.
func (b *Bridge) SetRelay(relay int, energized bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.connected {
		return fmt.Errorf("not connected")
	}

	state := '0'
	if energized {
		state = '1'
	}

	if _, err := b.conn.Write([]byte(fmt.Sprintf("R%d,%c\n", relay, state))); err != nil {
		return fmt.Errorf("failed to send relay command: %w", err)
	}

	return nil
}

// readFrames reads lines from the serial port and updates the latest frame.
func (b *Bridge) readFrames() {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic in readFrames: %v", r)
		}
	}()

	scanner := bufio.NewScanner(b.conn)
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				// Scanner stopped (EOF or error)
				if err := scanner.Err(); err != nil && err != io.EOF {
					log.Errorf("Error reading from serial port: %v", err)
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			frame, err := parseFrame(line)
			if err != nil {
				log.Warnf("Failed to parse frame '%s': %v", line, err)
				continue
			}

			b.mu.Lock()
			b.frame = frame
			b.haveFrame = true
			b.mu.Unlock()
		}
	}
}

// parseFrame parses one line from the MCU into a Frame.
// Format: millis,a0,a1,a2,a3,temp,hum,press
// Example: 123456,512,498,505,530,23.95,57.46,1016.12
func parseFrame(line string) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 1+NumChannels+3 {
		return Frame{}, fmt.Errorf("invalid frame: expected %d comma-separated values, got %d", 1+NumChannels+3, len(parts))
	}

	var frame Frame

	millis, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	frame.Millis = uint32(millis)

	for i := 0; i < NumChannels; i++ {
		value, err := strconv.Atoi(parts[1+i])
		if err != nil {
			return Frame{}, fmt.Errorf("invalid ADC value on channel %d: %w", i, err)
		}
		if value < 0 || value > ADCMax {
			return Frame{}, fmt.Errorf("ADC value out of range on channel %d: %d (max %d)", i, value, ADCMax)
		}
		frame.ADC[i] = value
	}

	env := [3]float32{}
	for i := range env {
		value, err := strconv.ParseFloat(parts[1+NumChannels+i], 32)
		if err != nil {
			return Frame{}, fmt.Errorf("invalid environment field %d: %w", i, err)
		}
		env[i] = float32(value)
	}
	frame.Env = telemetry.Reading{
		Temperature: env[0],
		Humidity:    env[1],
		Pressure:    env[2],
	}

	return frame, nil
}
