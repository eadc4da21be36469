package serialport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Open opens the P1 device with DSMR 5 settings (8N1 at the configured
// baud rate, 115200 for modern meters). The returned reader feeds the
// telegram scanner; the caller owns the port exclusively.
func Open(device string, baudRate int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", device, err)
	}
	return port, nil
}
