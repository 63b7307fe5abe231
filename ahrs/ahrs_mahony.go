package ahrs

import "github.com/westphae/quaternion"

const (
	MahonyKp = 0.5  // Default proportional gain
	MahonyKi = 0.05 // Default integral gain
)

// Mahony is the explicit complementary filter: the cross product between the
// measured and estimated gravity directions is fed back into the gyro rates
// through a PI controller.
type Mahony struct {
	TwoKp float64 // 2 * proportional gain
	TwoKi float64 // 2 * integral gain
}

func NewMahony(kp, ki float64) *Mahony {
	return &Mahony{TwoKp: 2 * kp, TwoKi: 2 * ki}
}

func (c *Mahony) Name() string {
	return AlgoMahony
}

func (c *Mahony) Correct(s *State, g, a [3]float64, dt float64) ([3]float64, quaternion.Quaternion) {
	q0, q1, q2, q3 := s.Q.W, s.Q.X, s.Q.Y, s.Q.Z

	// Estimated direction of gravity, halved
	halfvx := q1*q3 - q0*q2
	halfvy := q0*q1 + q2*q3
	halfvz := q0*q0 - 0.5 + q3*q3

	// Error is cross product between measured and estimated direction of gravity
	halfex := a[1]*halfvz - a[2]*halfvy
	halfey := a[2]*halfvx - a[0]*halfvz
	halfez := a[0]*halfvy - a[1]*halfvx

	if c.TwoKi > 0 {
		s.IntegralFB[0] += c.TwoKi * halfex * dt
		s.IntegralFB[1] += c.TwoKi * halfey * dt
		s.IntegralFB[2] += c.TwoKi * halfez * dt
		g[0] += s.IntegralFB[0]
		g[1] += s.IntegralFB[1]
		g[2] += s.IntegralFB[2]
	} else {
		// Prevent integral windup
		s.IntegralFB = [3]float64{}
	}

	g[0] += c.TwoKp * halfex
	g[1] += c.TwoKp * halfey
	g[2] += c.TwoKp * halfez

	return g, quaternion.Quaternion{}
}

func (c *Mahony) Reset(s *State) {
	s.IntegralFB = [3]float64{}
}
