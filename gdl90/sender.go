package gdl90

import (
	"net"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
)

// Port is where EFB apps listen for GDL90 traffic.
const Port = 4000

// Sender sends an AHRS message over UDP for every filter step.
type Sender struct {
	conn net.Conn
}

// NewSender sends to addr, e.g. "192.168.10.255:4000".
func NewSender(addr string) (*Sender, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	return &Sender{conn: conn}, nil
}

func (s *Sender) Send(f *ahrs.Filter, m ahrs.Sample) error {
	_, err := s.conn.Write(NewAHRSMsg(f, m).Encode())
	return err
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
