package canbus

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"go.einride.tech/can/pkg/socketcan"
)

const writeTimeout = 100 * time.Millisecond

// Sender transmits the attitude frames for every filter step.
type Sender struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

// NewSender opens the SocketCAN interface iface, e.g. "can0" or "vcan0".
func NewSender(ctx context.Context, iface string) (*Sender, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("canbus: dial %s: %w", iface, err)
	}
	return NewSenderConn(conn), nil
}

// NewSenderConn transmits on an already open connection.
func NewSenderConn(conn net.Conn) *Sender {
	return &Sender{conn: conn, tx: socketcan.NewTransmitter(conn)}
}

func (s *Sender) Send(f *ahrs.Filter, m ahrs.Sample) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	for _, frame := range NewAttitude(f, m).Frames() {
		if err := s.tx.TransmitFrame(ctx, frame); err != nil {
			return fmt.Errorf("canbus: transmit %#x: %w", frame.ID, err)
		}
	}
	return nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
