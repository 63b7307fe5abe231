package sensors

import (
	"fmt"

	"github.com/tarm/serial"
)

// OpenSerial reads live readings from a microcontroller streaming the replay
// CSV format, header first, over the serial device at baud.
// The timestamps are the device's own.
func OpenSerial(device string, baud int) (*ReplaySource, error) {
	p, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("sensors: serial port %s: %w", device, err)
	}
	s, err := NewReplaySource(p)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("%s: %w", device, err)
	}
	s.c = p
	return s, nil
}
