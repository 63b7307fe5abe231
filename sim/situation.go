// Package sim runs the attitude filter against synthesized sensor data from a
// known attitude history and reports how closely it tracks the truth.
package sim

import (
	"errors"
	"math"
	"sort"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/westphae/quaternion"
)

const pi = math.Pi

var ErrOutOfRange = errors.New("sim: requested time is outside of scenario")

// Situation is a known attitude history. Times are in seconds.
type Situation interface {
	BeginTime() float64
	EndTime() float64
	// Truth returns the body-to-reference quaternion at t.
	Truth(t float64) (quaternion.Quaternion, error)
	// Rates returns the body-frame angular rates at t, rad/s.
	Rates(t float64) ([3]float64, error)
}

func inRange(s Situation, t float64) bool {
	return t >= s.BeginTime()-1e-9 && t <= s.EndTime()+1e-9
}

// Static holds a fixed attitude.
type Static struct {
	Q        quaternion.Quaternion
	Duration float64
}

// NewStatic returns a situation holding roll, pitch and yaw (radians) for d seconds.
func NewStatic(roll, pitch, yaw, d float64) *Static {
	return &Static{Q: ahrs.FromEuler(roll, pitch, yaw), Duration: d}
}

func (s *Static) BeginTime() float64 { return 0 }
func (s *Static) EndTime() float64   { return s.Duration }

func (s *Static) Truth(t float64) (quaternion.Quaternion, error) {
	if !inRange(s, t) {
		return quaternion.Quaternion{}, ErrOutOfRange
	}
	return s.Q, nil
}

func (s *Static) Rates(t float64) ([3]float64, error) {
	if !inRange(s, t) {
		return [3]float64{}, ErrOutOfRange
	}
	return [3]float64{}, nil
}

// ConstantRate rotates at a fixed body rate W (rad/s) from the attitude Q0.
type ConstantRate struct {
	Q0       quaternion.Quaternion
	W        [3]float64
	Duration float64
}

func (s *ConstantRate) BeginTime() float64 { return 0 }
func (s *ConstantRate) EndTime() float64   { return s.Duration }

// Truth is q0*exp(w t/2), exact for a constant body rate.
func (s *ConstantRate) Truth(t float64) (quaternion.Quaternion, error) {
	if !inRange(s, t) {
		return quaternion.Quaternion{}, ErrOutOfRange
	}
	w := math.Sqrt(s.W[0]*s.W[0] + s.W[1]*s.W[1] + s.W[2]*s.W[2])
	if w == 0 {
		return s.Q0, nil
	}
	sn := math.Sin(w*t/2) / w
	dq := quaternion.Quaternion{W: math.Cos(w * t / 2), X: s.W[0] * sn, Y: s.W[1] * sn, Z: s.W[2] * sn}
	return quaternion.Prod(s.Q0, dq), nil
}

func (s *ConstantRate) Rates(t float64) ([3]float64, error) {
	if !inRange(s, t) {
		return [3]float64{}, ErrOutOfRange
	}
	return s.W, nil
}

// Maneuver defines a scenario by piecewise-linear interpolation of Euler angles.
type Maneuver struct {
	t               []float64 // times for situation, s
	phi, theta, psi []float64 // attitude, rad [roll, pitch, yaw]
}

// NewManeuver builds a maneuver passing through the given attitudes at times t,
// which must be increasing.
func NewManeuver(t, phi, theta, psi []float64) (*Maneuver, error) {
	if len(t) < 2 || len(phi) != len(t) || len(theta) != len(t) || len(psi) != len(t) {
		return nil, errors.New("sim: maneuver needs at least two points and equal-length series")
	}
	if !sort.Float64sAreSorted(t) {
		return nil, errors.New("sim: maneuver times must be increasing")
	}
	return &Maneuver{t: t, phi: phi, theta: theta, psi: psi}, nil
}

// BeginTime returns the time stamp when the maneuver begins
func (s *Maneuver) BeginTime() float64 {
	return s.t[0]
}

func (s *Maneuver) EndTime() float64 {
	return s.t[len(s.t)-1]
}

func (s *Maneuver) Truth(t float64) (quaternion.Quaternion, error) {
	if !inRange(s, t) {
		return quaternion.Quaternion{}, ErrOutOfRange
	}
	t = math.Max(s.t[0], math.Min(t, s.EndTime()))
	ix := 0
	if t > s.t[0] {
		ix = sort.SearchFloat64s(s.t, t) - 1
	}

	f := (s.t[ix+1] - t) / (s.t[ix+1] - s.t[ix])
	return ahrs.FromEuler(
		f*s.phi[ix]+(1-f)*s.phi[ix+1],
		f*s.theta[ix]+(1-f)*s.theta[ix+1],
		f*s.psi[ix]+(1-f)*s.psi[ix+1]), nil
}

// Rates differentiates the truth numerically: w = 2 vec(q(t)' * q(t+h)) / h.
func (s *Maneuver) Rates(t float64) ([3]float64, error) {
	if !inRange(s, t) {
		return [3]float64{}, ErrOutOfRange
	}
	const ddt = 0.001
	t0, t1 := t, t+ddt
	if t1 > s.EndTime() {
		t1 = s.EndTime()
		t0 = t1 - ddt
	}
	q0, _ := s.Truth(t0)
	q1, _ := s.Truth(t1)
	dq := quaternion.Prod(q0.Conj(), q1)
	k := 2 / ddt
	if dq.W < 0 {
		k = -k
	}
	return [3]float64{k * dq.X, k * dq.Y, k * dq.Z}, nil
}

// A bank to 30° with a little nose-up, a 90° heading change, and a roll-out.
// start, initiate roll-in, end roll-in, initiate roll-out, end roll-out, end
var sitTurnDef = &Maneuver{
	t:     []float64{0, 10, 15, 45, 50, 60},
	phi:   []float64{0, 0, pi / 6, pi / 6, 0, 0},
	theta: []float64{0, 0, pi / 90, pi / 90, 0, 0},
	psi:   []float64{0, 0, 0, pi / 2, pi / 2, pi / 2},
}

// Scenario returns one of the built-in situations by name:
// "static" (15° roll, 10° pitch), "spin" (30°/s yaw while tilted) or "turn".
// d sets the duration of the first two; "turn" has a fixed length.
func Scenario(name string, d float64) (Situation, error) {
	switch name {
	case "static":
		return NewStatic(15*ahrs.Deg, -10*ahrs.Deg, 0, d), nil
	case "spin":
		return &ConstantRate{
			Q0:       ahrs.FromEuler(10*ahrs.Deg, 5*ahrs.Deg, 0),
			W:        [3]float64{0, 0, 30 * ahrs.Deg},
			Duration: d,
		}, nil
	case "turn":
		return sitTurnDef, nil
	}
	return nil, errors.New("sim: no such scenario " + name)
}
