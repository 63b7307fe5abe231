package ahrs

import "github.com/westphae/quaternion"

const (
	LegacyKp = 2.5
	LegacyKi = 1.0
)

// Legacy is the older complementary filter: same cross-product error as Mahony,
// computed on the full gravity vector, with integrators that are never reset.
type Legacy struct {
	Kp, Ki float64
}

func NewLegacy(kp, ki float64) *Legacy {
	return &Legacy{Kp: kp, Ki: ki}
}

func (c *Legacy) Name() string {
	return AlgoLegacy
}

func (c *Legacy) Correct(s *State, g, a [3]float64, dt float64) ([3]float64, quaternion.Quaternion) {
	v := GravityEstimate(s.Q)

	// Error is cross product between measured and estimated direction of gravity
	ex := a[1]*v[2] - a[2]*v[1]
	ey := a[2]*v[0] - a[0]*v[2]
	ez := a[0]*v[1] - a[1]*v[0]

	s.IntegralFB[0] += c.Ki * ex * dt
	s.IntegralFB[1] += c.Ki * ey * dt
	s.IntegralFB[2] += c.Ki * ez * dt

	g[0] += c.Kp*ex + s.IntegralFB[0]
	g[1] += c.Kp*ey + s.IntegralFB[1]
	g[2] += c.Kp*ez + s.IntegralFB[2]

	return g, quaternion.Quaternion{}
}

// Reset leaves the integrators alone.
func (c *Legacy) Reset(s *State) {}
