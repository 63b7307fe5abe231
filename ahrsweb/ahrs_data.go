// Package ahrsweb streams attitude filter snapshots to browsers over websockets.
package ahrsweb

import "github.com/LuisKopp/RaspberryPilot/ahrs"

const Port = 8000

// AHRSData is the JSON snapshot sent for each filter step.
type AHRSData struct {
	T         float64 // Filter clock at the last update, s
	Algorithm string

	E0, E1, E2, E3       float64 // Quaternion rotating body frame to reference frame
	Roll, Pitch, Heading float64 // °
	I1, I2, I3           float64 // Integral feedback, rad/s

	// Measurement that produced this step
	B1, B2, B3 float64 // Gyro rates, °/s
	A1, A2, A3 float64 // Accelerometer, as supplied
}

// NewAHRSData takes a snapshot of f after it processed s.
func NewAHRSData(f *ahrs.Filter, s ahrs.Sample) *AHRSData {
	d := new(AHRSData)
	d.update(f, s)
	return d
}

func (d *AHRSData) update(f *ahrs.Filter, s ahrs.Sample) {
	st := f.State()
	d.T = st.T.Seconds()
	d.Algorithm = f.Algorithm()

	d.E0, d.E1, d.E2, d.E3 = st.Q.W, st.Q.X, st.Q.Y, st.Q.Z
	d.Roll, d.Pitch, d.Heading = st.RollPitchYaw()
	d.I1, d.I2, d.I3 = st.IntegralFB[0], st.IntegralFB[1], st.IntegralFB[2]

	d.B1, d.B2, d.B3 = s.G[0]/ahrs.Deg, s.G[1]/ahrs.Deg, s.G[2]/ahrs.Deg
	d.A1, d.A2, d.A3 = s.A[0], s.A[1], s.A[2]
}
