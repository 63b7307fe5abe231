// Package ahrs implements an attitude estimator that fuses gyro and
// accelerometer readings into an orientation quaternion.
//
// Three feedback algorithms are available (Mahony, Madgwick and Legacy); they
// share the integration and normalization steps and differ only in how the
// gravity reference corrects the gyro-integrated estimate.
package ahrs

import (
	"github.com/westphae/quaternion"
)

// Filter is an orientation filter driven once per sensor sample.
// A Filter is not safe for concurrent use.
type Filter struct {
	s     State
	c     Corrector
	clock Clock
}

// NewFilter returns a filter using correction algorithm c and time source clock,
// initialized to the identity orientation.
func NewFilter(c Corrector, clock Clock) *Filter {
	f := &Filter{c: c, clock: clock}
	f.Init()
	return f
}

// New builds a filter from a configuration.
func New(cfg Config, clock Clock) (*Filter, error) {
	c, err := cfg.Corrector()
	if err != nil {
		return nil, err
	}
	return NewFilter(c, clock), nil
}

// Init resets the orientation to identity and forgets the last update time,
// so that the next Update only captures the timestamp.
func (f *Filter) Init() {
	f.s.identity()
	f.c.Reset(&f.s)
}

// Update runs one filter step with gyro rates gx, gy, gz (rad/s) and
// accelerometer reading ax, ay, az, and returns the new orientation.
// The first call after Init only records the time.
// An all-zero accelerometer reading means no gravity reference: the gyro is integrated alone.
func (f *Filter) Update(gx, gy, gz, ax, ay, az float64) quaternion.Quaternion {
	t := f.clock.Now()
	if !f.s.Started {
		f.s.T = t
		f.s.Started = true
		return f.s.Q
	}
	dt := seconds(t - f.s.T)

	g := [3]float64{gx, gy, gz}
	var qDot quaternion.Quaternion

	if !(ax == 0 && ay == 0 && az == 0) {
		recipNorm := InvSqrt(ax*ax + ay*ay + az*az)
		a := [3]float64{ax * recipNorm, ay * recipNorm, az * recipNorm}
		g, qDot = f.c.Correct(&f.s, g, a, dt)
	}

	f.s.Q = Normalize(Integrate(f.s.Q, g, qDot, dt))
	f.s.T = t
	return f.s.Q
}

// UpdateSample is Update for a Sample.
func (f *Filter) UpdateSample(m Sample) quaternion.Quaternion {
	return f.Update(m.G[0], m.G[1], m.G[2], m.A[0], m.A[1], m.A[2])
}

// Quaternion returns the current orientation.
func (f *Filter) Quaternion() quaternion.Quaternion {
	return f.s.Q
}

// State returns a copy of the filter state.
func (f *Filter) State() State {
	return f.s
}

// SetAttitude overrides the current orientation, normalizing q.
// A zero q resets the orientation to identity.
func (f *Filter) SetAttitude(q quaternion.Quaternion) {
	if q.W == 0 && q.X == 0 && q.Y == 0 && q.Z == 0 {
		q = quaternion.Quaternion{W: 1}
	}
	f.s.Q = Normalize(q)
}

// Algorithm returns the name of the correction algorithm in use.
func (f *Filter) Algorithm() string {
	return f.c.Name()
}
