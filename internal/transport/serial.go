package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenSerial opens a sensor channel on a serial device, typically an RFCOMM
// or USB bridge carrying the sensor's UART notifications. serial.Port
// implements SetReadTimeout so the result is also a TimeoutPort.
func OpenSerial(path string, opts PortOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	return port, nil
}
