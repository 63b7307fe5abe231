package ahrs

import (
	"time"

	"github.com/westphae/quaternion"
)

// State holds everything the filter carries from one update to the next.
// Body frame is fixed to the sensor; reference frame has 3 pointing up.
type State struct {
	Q          quaternion.Quaternion // Quaternion rotating body frame to reference frame
	IntegralFB [3]float64            // Integral feedback, rad/s, already scaled by the integral gain

	T       time.Duration // Clock reading at the last update
	Started bool          // Whether T holds a reading yet
}

// identity puts the orientation back to level and forgets the last timestamp.
func (s *State) identity() {
	s.Q = quaternion.Quaternion{W: 1}
	s.T = 0
	s.Started = false
}

// RollPitchYaw returns the current attitude, in degrees.
func (s State) RollPitchYaw() (roll, pitch, yaw float64) {
	roll, pitch, yaw = ToEuler(s.Q)
	return roll / Deg, pitch / Deg, yaw / Deg
}

// Normalize returns q scaled to unit magnitude.
// q must not be zero. A second Newton step on top of InvSqrt keeps |q|²
// within 1e-5 of 1; a single step settles at about 0.9966.
func Normalize(q quaternion.Quaternion) quaternion.Quaternion {
	qq := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	recipNorm := InvSqrt(qq)
	recipNorm *= 1.5 - 0.5*qq*recipNorm*recipNorm
	q.W *= recipNorm
	q.X *= recipNorm
	q.Y *= recipNorm
	q.Z *= recipNorm
	return q
}

// Integrate advances q by one explicit Euler step of
// q' = 1/2 q*(0,g) + qDot over dt seconds. The result is not normalized.
func Integrate(q quaternion.Quaternion, g [3]float64, qDot quaternion.Quaternion, dt float64) quaternion.Quaternion {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	gx, gy, gz := g[0], g[1], g[2]

	qDot.W += 0.5 * (-q1*gx - q2*gy - q3*gz)
	qDot.X += 0.5 * (q0*gx + q2*gz - q3*gy)
	qDot.Y += 0.5 * (q0*gy - q1*gz + q3*gx)
	qDot.Z += 0.5 * (q0*gz + q1*gy - q2*gx)

	return quaternion.Quaternion{
		W: q0 + qDot.W*dt,
		X: q1 + qDot.X*dt,
		Y: q2 + qDot.Y*dt,
		Z: q3 + qDot.Z*dt,
	}
}

// GravityEstimate returns the reference-frame up direction seen from the body frame,
// i.e. what a level, unaccelerated accelerometer would read given q.
func GravityEstimate(q quaternion.Quaternion) (v [3]float64) {
	v[0] = 2 * (q.X*q.Z - q.W*q.Y)
	v[1] = 2 * (q.W*q.X + q.Y*q.Z)
	v[2] = q.W*q.W - q.X*q.X - q.Y*q.Y + q.Z*q.Z
	return
}
