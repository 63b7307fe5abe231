package ahrs

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/skelterjohn/go.matrix"
	"github.com/westphae/quaternion"
)

const (
	Tolerance = 1e-4
	Small     = 1e-9
)

// notSmall checks whether a result is not small compared to Tolerance
func notSmall(x float64) bool {
	return math.Abs(x) > Tolerance
}

func wrapPi(x float64) float64 {
	for x > Pi {
		x -= 2 * Pi
	}
	for x < -Pi {
		x += 2 * Pi
	}
	return x
}

func TestRoundTrips(t *testing.T) {
	phis := []float64{0, 0.1, 0.2, 0.5, 1, 1.5, 2, 2.5, 3, -3, -2, -1, -0.5, -0.2}
	thetas := []float64{0.1, 0.2, 0.5, 1, 1.5, -1.5, -0.5, -0.2, 0.2, 0.1, -1, -0.5, -0.2, 0}
	psis := []float64{1, 1.5, 2, 2.5, 3, -3, 0.1, 0.2, 0.5, -1, -0.5, 3.1, -2, 0}

	for i := 0; i < len(phis); i++ {
		phi, theta, psi := phis[i], thetas[i], psis[i]
		phiOut, thetaOut, psiOut := ToEuler(FromEuler(phi, theta, psi))
		if notSmall(phi-phiOut) || notSmall(theta-thetaOut) || notSmall(wrapPi(psi-psiOut)) {
			fmt.Printf("%+5.3f -> %+5.3f, %+5.3f -> %+5.3f, %+5.3f -> %+5.3f\n",
				phi, phiOut, theta, thetaOut, psi, psiOut)
			t.Fail()
		}
	}
}

func TestFromEulerIsUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		q := FromEuler(2*Pi*rng.Float64()-Pi, Pi*rng.Float64()-Pi/2, 2*Pi*rng.Float64()-Pi)
		if math.Abs(norm2(q)-1) > Small {
			t.Errorf("FromEuler gave |q|²=%f", norm2(q))
		}
	}
}

func TestSpecificEuler(t *testing.T) {
	tests := []struct {
		name             string
		q                quaternion.Quaternion
		roll, pitch, yaw float64
	}{
		{"identity", quaternion.Quaternion{W: 1}, 0, 0, 0},
		{"roll 90", quaternion.Quaternion{W: math.Sqrt2 / 2, X: math.Sqrt2 / 2}, Pi / 2, 0, 0},
		{"pitch 60", quaternion.Quaternion{W: math.Cos(Pi / 6), Y: math.Sin(Pi / 6)}, 0, Pi / 3, 0},
		{"yaw 180", quaternion.Quaternion{Z: 1}, 0, 0, Pi},
		{"yaw -90", quaternion.Quaternion{W: math.Sqrt2 / 2, Z: -math.Sqrt2 / 2}, 0, 0, -Pi / 2},
	}
	for _, tt := range tests {
		r, p, y := ToEuler(tt.q)
		if notSmall(r-tt.roll) || notSmall(p-tt.pitch) || notSmall(wrapPi(y-tt.yaw)) {
			t.Errorf("%s: got roll %f pitch %f yaw %f", tt.name, r, p, y)
		}
	}
}

func TestPitchClampedAtGimbalLock(t *testing.T) {
	// Slightly over-unit quaternion pushes the asin argument past 1
	q := quaternion.Quaternion{W: math.Sqrt2/2 + 1e-9, Y: math.Sqrt2/2 + 1e-9}
	_, p, _ := ToEuler(q)
	if math.IsNaN(p) || notSmall(p-Pi/2) {
		t.Errorf("pitch at gimbal lock is %f", p)
	}
}

func TestRotationMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x := quaternion.Quaternion{X: 1}
	y := quaternion.Quaternion{Y: 1}
	z := quaternion.Quaternion{Z: 1}

	for i := 0; i < 50; i++ {
		e := FromEuler(2*Pi*rng.Float64()-Pi, Pi*rng.Float64()-Pi/2, 2*Pi*rng.Float64()-Pi)
		m := RotationMatrix(e)
		for j, u := range []quaternion.Quaternion{x, y, z} {
			uu := quaternion.Prod(e, u, e.Conj())
			if notSmall(m.Get(0, j)-uu.X) || notSmall(m.Get(1, j)-uu.Y) || notSmall(m.Get(2, j)-uu.Z) {
				fmt.Printf("Column %d: %+5.3f %+5.3f %+5.3f, rotated %+5.3f %+5.3f %+5.3f\n",
					j, m.Get(0, j), m.Get(1, j), m.Get(2, j), uu.X, uu.Y, uu.Z)
				t.Fail()
			}
		}

		// Orthonormal
		mmt := matrix.Product(m, m.Transpose())
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				want := 0.0
				if r == c {
					want = 1
				}
				if notSmall(mmt.Get(r, c) - want) {
					t.Errorf("R*Rt[%d][%d] = %f", r, c, mmt.Get(r, c))
				}
			}
		}
	}
}

func TestGravityEstimate(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	z := quaternion.Quaternion{Z: 1}
	for i := 0; i < 50; i++ {
		e := FromEuler(2*Pi*rng.Float64()-Pi, Pi*rng.Float64()-Pi/2, 2*Pi*rng.Float64()-Pi)
		v := GravityEstimate(e)
		zb := quaternion.Prod(e.Conj(), z, e)
		if notSmall(v[0]-zb.X) || notSmall(v[1]-zb.Y) || notSmall(v[2]-zb.Z) {
			t.Errorf("GravityEstimate %v, rotated up %v", v, zb)
		}
		m := RotationMatrix(e)
		for j := 0; j < 3; j++ {
			if notSmall(m.Get(2, j) - v[j]) {
				t.Errorf("last row of R %f differs from gravity estimate %f", m.Get(2, j), v[j])
			}
		}
	}
}

func TestTiltAngle(t *testing.T) {
	for _, a := range []float64{0, 0.1, 0.5, 1, 2, 3} {
		if tilt := TiltAngle(FromEuler(a, 0, 0.7)); notSmall(tilt - a) {
			t.Errorf("roll %f: tilt %f", a, tilt)
		}
		if tilt := TiltAngle(FromEuler(0, -a/2, -1.2)); notSmall(tilt - a/2) {
			t.Errorf("pitch %f: tilt %f", -a/2, tilt)
		}
	}
}

func TestRollPitchYawDegrees(t *testing.T) {
	s := State{Q: FromEuler(30*Deg, -20*Deg, 100*Deg)}
	r, p, y := s.RollPitchYaw()
	if notSmall(r-30) || notSmall(p+20) || notSmall(y-100) {
		t.Errorf("got %f %f %f degrees", r, p, y)
	}
}
