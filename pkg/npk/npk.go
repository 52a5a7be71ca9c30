// Package npk implements the Modbus RTU client for the 7-in-1 RS-485 soil
// nutrient sensor. One fixed-format request/response exchange, no
// calibration or smoothing.
package npk

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory baud rate of the sensor.
	DefaultBaudRate = 4800

	funcReadHolding = 0x03
	numRegisters    = 7
	responseLen     = 19 // addr + func + count + 7 registers + CRC
)

// Reading holds one decoded measurement set.
type Reading struct {
	Moisture     float32 // %
	Temperature  float32 // degrees Celsius
	Conductivity uint16  // µS/cm
	PH           float32
	Nitrogen     uint16 // mg/kg
	Phosphorus   uint16 // mg/kg
	Potassium    uint16 // mg/kg
}

// Plausible reports whether the reading falls inside the sensor's documented
// operating ranges. Implausible readings usually mean wiring or baud rate
// trouble rather than bad soil.
func (r Reading) Plausible() bool {
	if r.Moisture < 0 || r.Moisture > 100 {
		return false
	}
	if r.Temperature < -40 || r.Temperature > 80 {
		return false
	}
	if r.PH < 0 || r.PH > 14 {
		return false
	}
	return true
}

// CRC16 computes the Modbus RTU CRC over buf.
func CRC16(buf []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range buf {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Client speaks Modbus RTU to the sensor. The RS-485 transceiver handles
// direction switching; the client only sees a byte stream.
type Client struct {
	rw    io.ReadWriter
	slave byte
}

// NewClient wraps an open transport.
func NewClient(rw io.ReadWriter, slave byte) *Client {
	if slave == 0 {
		slave = 1
	}
	return &Client{rw: rw, slave: slave}
}

// Open opens the serial port and returns a client plus a closer for the port.
func Open(port string, baudRate int, slave byte) (*Client, func() error, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, nil, fmt.Errorf("opening NPK port %s: %w", port, err)
	}

	return NewClient(p, slave), p.Close, nil
}

// request builds the read-holding-registers frame covering all 7 registers.
func (c *Client) request() []byte {
	req := []byte{c.slave, funcReadHolding, 0x00, 0x00, 0x00, numRegisters, 0, 0}
	crc := CRC16(req[:6])
	req[6] = byte(crc & 0xFF) // CRC low byte first on the wire
	req[7] = byte(crc >> 8)
	return req
}

// Read performs one request/response exchange and decodes the registers.
func (c *Client) Read() (Reading, error) {
	if _, err := c.rw.Write(c.request()); err != nil {
		return Reading{}, fmt.Errorf("sending request: %w", err)
	}

	resp := make([]byte, responseLen)
	if _, err := io.ReadFull(c.rw, resp); err != nil {
		return Reading{}, fmt.Errorf("reading response: %w", err)
	}

	return parseResponse(resp, c.slave)
}

func parseResponse(resp []byte, slave byte) (Reading, error) {
	if len(resp) != responseLen {
		return Reading{}, fmt.Errorf("invalid response length: %d bytes (expected %d)", len(resp), responseLen)
	}
	if resp[0] != slave {
		return Reading{}, fmt.Errorf("wrong slave address 0x%02X", resp[0])
	}
	if resp[1] != funcReadHolding {
		return Reading{}, fmt.Errorf("wrong function code 0x%02X", resp[1])
	}
	if resp[2] != 2*numRegisters {
		return Reading{}, fmt.Errorf("wrong byte count %d", resp[2])
	}

	received := uint16(resp[18])<<8 | uint16(resp[17])
	if calculated := CRC16(resp[:17]); received != calculated {
		return Reading{}, fmt.Errorf("CRC mismatch: received 0x%04X, calculated 0x%04X", received, calculated)
	}

	reg := func(i int) uint16 {
		return uint16(resp[3+2*i])<<8 | uint16(resp[4+2*i])
	}

	return Reading{
		Moisture:     float32(reg(0)) / 10,
		Temperature:  float32(int16(reg(1))) / 10, // signed, sub-zero soil happens
		Conductivity: reg(2),
		PH:           float32(reg(3)) / 10,
		Nitrogen:     reg(4),
		Phosphorus:   reg(5),
		Potassium:    reg(6),
	}, nil
}
