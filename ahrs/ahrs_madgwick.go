package ahrs

import "github.com/westphae/quaternion"

const MadgwickBeta = 1.0 // Default gradient descent gain

// Madgwick corrects the quaternion derivative directly with one normalized
// gradient descent step on the squared gravity residual.
//
// S. O. H. Madgwick, An efficient orientation filter for inertial and
// inertial/magnetic sensor arrays, University of Bristol, 2010.
type Madgwick struct {
	Beta float64
}

func NewMadgwick(beta float64) *Madgwick {
	return &Madgwick{Beta: beta}
}

func (c *Madgwick) Name() string {
	return AlgoMadgwick
}

func (c *Madgwick) Correct(s *State, g, a [3]float64, dt float64) ([3]float64, quaternion.Quaternion) {
	q0, q1, q2, q3 := s.Q.W, s.Q.X, s.Q.Y, s.Q.Z
	ax, ay, az := a[0], a[1], a[2]

	_2q0 := 2 * q0
	_2q1 := 2 * q1
	_2q2 := 2 * q2
	_2q3 := 2 * q3
	_4q0 := 4 * q0
	_4q1 := 4 * q1
	_4q2 := 4 * q2
	_8q1 := 8 * q1
	_8q2 := 8 * q2
	q0q0 := q0 * q0
	q1q1 := q1 * q1
	q2q2 := q2 * q2
	q3q3 := q3 * q3

	s0 := _4q0*q2q2 + _2q2*ax + _4q0*q1q1 - _2q1*ay
	s1 := _4q1*q3q3 - _2q3*ax + 4*q0q0*q1 - _2q0*ay - _4q1 + _8q1*q1q1 + _8q1*q2q2 + _4q1*az
	s2 := 4*q0q0*q2 + _2q0*ax + _4q2*q3q3 - _2q3*ay - _4q2 + _8q2*q1q1 + _8q2*q2q2 + _4q2*az
	s3 := 4*q1q1*q3 - _2q1*ax + 4*q2q2*q3 - _2q2*ay

	ss := s0*s0 + s1*s1 + s2*s2 + s3*s3
	if ss == 0 {
		// Already aligned with gravity
		return g, quaternion.Quaternion{}
	}
	recipNorm := InvSqrt(ss)

	return g, quaternion.Quaternion{
		W: -c.Beta * s0 * recipNorm,
		X: -c.Beta * s1 * recipNorm,
		Y: -c.Beta * s2 * recipNorm,
		Z: -c.Beta * s3 * recipNorm,
	}
}

func (c *Madgwick) Reset(s *State) {
	s.IntegralFB = [3]float64{}
}
