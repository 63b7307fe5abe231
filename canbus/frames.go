// Package canbus publishes the filter's attitude as CAN frames over SocketCAN.
//
// Two standard frames are sent per step, all signals little-endian:
//
//	0x100 attitude: roll, pitch, yaw (int16, 0.01°), g load (int16, 0.001 G)
//	0x101 rates:    x, y, z body rates (int16, 0.01 °/s)
package canbus

import (
	"errors"
	"math"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"go.einride.tech/can"
)

const (
	IDAttitude uint32 = 0x100
	IDRates    uint32 = 0x101

	attScale  = 100  // per degree
	gScale    = 1000 // per G
	rateScale = 100  // per °/s
)

var ErrUnknownFrame = errors.New("canbus: unknown frame")

// Attitude is the content of the two frames.
type Attitude struct {
	Roll, Pitch, Yaw float64    // °
	GLoad            float64    // G
	Rates            [3]float64 // °/s
}

// NewAttitude reads the current attitude of f and the rates and load of s.
func NewAttitude(f *ahrs.Filter, s ahrs.Sample) Attitude {
	roll, pitch, yaw := f.State().RollPitchYaw()
	return Attitude{
		Roll:  roll,
		Pitch: pitch,
		Yaw:   yaw,
		GLoad: math.Sqrt(s.A[0]*s.A[0] + s.A[1]*s.A[1] + s.A[2]*s.A[2]),
		Rates: [3]float64{s.G[0] / ahrs.Deg, s.G[1] / ahrs.Deg, s.G[2] / ahrs.Deg},
	}
}

// scaled rounds v*scale into an int16, saturating. NaN goes to zero.
func scaled(v, scale float64) int64 {
	x := math.Round(v * scale)
	switch {
	case math.IsNaN(x):
		return 0
	case x > math.MaxInt16:
		return math.MaxInt16
	case x < math.MinInt16:
		return math.MinInt16
	}
	return int64(x)
}

func setSignal(d *can.Data, i int, v, scale float64) {
	d.SetSignedBitsLittleEndian(uint8(16*i), 16, scaled(v, scale))
}

func signal(d can.Data, i int, scale float64) float64 {
	return float64(d.SignedBitsLittleEndian(uint8(16*i), 16)) / scale
}

// Frames encodes a as its attitude and rates frames.
func (a Attitude) Frames() [2]can.Frame {
	att := can.Frame{ID: IDAttitude, Length: 8}
	setSignal(&att.Data, 0, a.Roll, attScale)
	setSignal(&att.Data, 1, a.Pitch, attScale)
	setSignal(&att.Data, 2, a.Yaw, attScale)
	setSignal(&att.Data, 3, a.GLoad, gScale)

	rates := can.Frame{ID: IDRates, Length: 6}
	for i, w := range a.Rates {
		setSignal(&rates.Data, i, w, rateScale)
	}
	return [2]can.Frame{att, rates}
}

// Decode fills in the part of a carried by frame.
func (a *Attitude) Decode(frame can.Frame) error {
	switch frame.ID {
	case IDAttitude:
		a.Roll = signal(frame.Data, 0, attScale)
		a.Pitch = signal(frame.Data, 1, attScale)
		a.Yaw = signal(frame.Data, 2, attScale)
		a.GLoad = signal(frame.Data, 3, gScale)
	case IDRates:
		for i := range a.Rates {
			a.Rates[i] = signal(frame.Data, i, rateScale)
		}
	default:
		return ErrUnknownFrame
	}
	return nil
}
