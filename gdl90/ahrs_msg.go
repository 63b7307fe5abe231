// Package gdl90 encodes and decodes the iLevil AHRS message carried in GDL90
// framing, the attitude format EFB apps read over UDP.
package gdl90

import (
	"errors"
	"fmt"
	"math"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
)

// iLevil FLAG, CompanyID, PackageID and Version
const (
	FLAG     = 0x7e  // GDL90 FLAG symbol
	ESC      = 0x7d  // GDL90 control escape
	CID      = "LE"  // iLevil CompanyID
	PIDAHRS  = 0x01  // AHRS PackageID
	PIDAHRS1 = 0x01  // AHRS PackageID Version 1
	INTERR   = 32767 // Error value for int16 types
	UINTERR  = 65535 // Error value for uint16 types

	msgLen = 28 // Unescaped length, flags included
)

var ErrBadMessage = errors.New("AHRS Message Error")

// AHRSMsg contains the data of an iLevil AHRS version 1 message.
// Angles are in tenths of a degree.
type AHRSMsg struct {
	roll        int16
	pitch       int16
	yaw         int16
	inclination int16
	turnCoord   int16
	gLoad       int16
	kias        int16
	pAlt        uint16
	vertSpeed   int16
}

// NewAHRSMsg builds a message from the state of f after processing s.
// The filter knows nothing of airspeed, altitude or vertical speed, so those are sent as invalid.
func NewAHRSMsg(f *ahrs.Filter, s ahrs.Sample) *AHRSMsg {
	roll, pitch, yaw := f.State().RollPitchYaw()
	a := s.A
	aa := math.Sqrt(a[0]*a[0] + a[1]*a[1] + a[2]*a[2])

	return &AHRSMsg{
		roll:        tenths(roll),
		pitch:       tenths(pitch),
		yaw:         tenths(yaw),
		inclination: tenths(math.Atan2(a[1], a[2]) / ahrs.Deg),
		turnCoord:   tenths(s.G[2] / ahrs.Deg),
		gLoad:       tenths(aa),
		kias:        INTERR,
		pAlt:        UINTERR,
		vertSpeed:   INTERR,
	}
}

// tenths scales x by 10 into an int16, reserving INTERR for missing values.
func tenths(x float64) int16 {
	x = math.Round(10 * x)
	if math.IsNaN(x) {
		return INTERR
	}
	return int16(math.Max(-INTERR, math.Min(INTERR-1, x)))
}

// Encode returns the framed, escaped message ready to send.
func (dat *AHRSMsg) Encode() []byte {
	msg := make([]byte, 0, msgLen)
	msg = append(msg, CID[0], CID[1], PIDAHRS, PIDAHRS1)
	for _, v := range []int16{dat.roll, dat.pitch, dat.yaw, dat.inclination, dat.turnCoord, dat.gLoad, dat.kias} {
		msg = append(msg, byte(uint16(v)>>8), byte(v))
	}
	msg = append(msg, byte(dat.pAlt>>8), byte(dat.pAlt))
	msg = append(msg, byte(uint16(dat.vertSpeed)>>8), byte(dat.vertSpeed))
	msg = append(msg, 0, 0) // Reserved
	crc := crc16(msg)
	msg = append(msg, byte(crc), byte(crc>>8))

	out := make([]byte, 0, msgLen+4)
	out = append(out, FLAG)
	for _, b := range msg {
		if b == FLAG || b == ESC {
			out = append(out, ESC, b^0x20)
		} else {
			out = append(out, b)
		}
	}
	return append(out, FLAG)
}

func unescape(msg []byte) []byte {
	out := make([]byte, 0, len(msg))
	for i := 0; i < len(msg); i++ {
		if msg[i] == ESC && i+1 < len(msg) {
			i++
			out = append(out, msg[i]^0x20)
		} else {
			out = append(out, msg[i])
		}
	}
	return out
}

// Decode parses a framed message as received.
func (dat *AHRSMsg) Decode(msg []byte) error {
	if len(msg) < 2 || msg[0] != FLAG {
		return fmt.Errorf("%w: missing FLAG 0x7E at message beginning", ErrBadMessage)
	}
	if msg[len(msg)-1] != FLAG {
		return fmt.Errorf("%w: missing FLAG 0x7E at message end", ErrBadMessage)
	}
	msg = append([]byte{FLAG}, append(unescape(msg[1:len(msg)-1]), FLAG)...)
	if len(msg) != msgLen {
		return fmt.Errorf("%w: message length was %d, should be %d", ErrBadMessage, len(msg), msgLen)
	}
	if s := string(msg[1:3]); s != CID {
		return fmt.Errorf("%w: incorrect CompanyID: %s", ErrBadMessage, s)
	}
	if msg[3] != PIDAHRS {
		return fmt.Errorf("%w: expecting ProductID 0x01, received %#x", ErrBadMessage, msg[3])
	}
	if msg[4] != PIDAHRS1 {
		return fmt.Errorf("%w: expecting ProductID Version 0x01, received %#x", ErrBadMessage, msg[4])
	}
	if crc := uint16(msg[25]) | uint16(msg[26])<<8; crc != crc16(msg[1:25]) {
		return fmt.Errorf("%w: CRC incorrect", ErrBadMessage)
	}

	dat.roll = bytes2int(msg[5:7])
	dat.pitch = bytes2int(msg[7:9])
	dat.yaw = bytes2int(msg[9:11])
	dat.inclination = bytes2int(msg[11:13])
	dat.turnCoord = bytes2int(msg[13:15])
	dat.gLoad = bytes2int(msg[15:17])
	dat.kias = bytes2int(msg[17:19])
	dat.pAlt = bytes2uint(msg[19:21])
	dat.vertSpeed = bytes2int(msg[21:23])
	return nil
}

func tenthsOf(v int16, name string) (float64, error) {
	if v == INTERR {
		return 0, fmt.Errorf("bad %s value", name)
	}
	return float64(v) / 10, nil
}

func (dat *AHRSMsg) Roll() (float64, error)        { return tenthsOf(dat.roll, "Roll") }
func (dat *AHRSMsg) Pitch() (float64, error)       { return tenthsOf(dat.pitch, "Pitch") }
func (dat *AHRSMsg) Yaw() (float64, error)         { return tenthsOf(dat.yaw, "Yaw") }
func (dat *AHRSMsg) Inclination() (float64, error) { return tenthsOf(dat.inclination, "Inclination") }
func (dat *AHRSMsg) TurnCoord() (float64, error)   { return tenthsOf(dat.turnCoord, "TurnCoord") }
func (dat *AHRSMsg) GLoad() (float64, error)       { return tenthsOf(dat.gLoad, "GLoad") }
func (dat *AHRSMsg) KIAS() (float64, error)        { return tenthsOf(dat.kias, "KIAS") }

func (dat *AHRSMsg) PAlt() (pAlt float64, err error) {
	if dat.pAlt == UINTERR {
		return 0, errors.New("bad PAlt value")
	}
	return float64(dat.pAlt) - 5000, nil
}

func (dat *AHRSMsg) VertSpeed() (vertSpeed float64, err error) {
	if dat.vertSpeed == INTERR {
		return 0, errors.New("bad VertSpeed value")
	}
	return float64(dat.vertSpeed), nil
}

func bytes2int(b []byte) int16 {
	return (int16(b[1]) << 0) | (int16(b[0]) << 8)
}

func bytes2uint(b []byte) uint16 {
	return (uint16(b[1]) << 0) | (uint16(b[0]) << 8)
}

var crcTable [256]uint16

func init() {
	for i := range crcTable {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// crc16 is the GDL90 frame check sequence (CRC-CCITT) of msg.
func crc16(msg []byte) uint16 {
	var crc uint16
	for _, b := range msg {
		crc = crcTable[crc>>8] ^ crc<<8 ^ uint16(b)
	}
	return crc
}
