package ahrs

import (
	"math"

	"github.com/westphae/quaternion"
)

const (
	Pi  = math.Pi
	Deg = Pi / 180
)

// Names of the available correction algorithms.
const (
	AlgoMahony   = "mahony"   // Explicit complementary filter, the default
	AlgoMadgwick = "madgwick" // Gradient descent
	AlgoLegacy   = "legacy"   // Original complementary filter with persistent integrators
)

// Sample holds one gyro/accel reading.
// Body frame: 1 is x, 2 is y, 3 is z; at rest and level the accelerometer reads +z.
type Sample struct {
	G [3]float64 // Gyro rates, rad/s
	A [3]float64 // Accelerometer, any consistent units; only the direction is used
}

// Corrector is the gravity-reference feedback step of the filter.
// Algorithms differ only in how they turn the accelerometer direction into a
// correction; integration and normalization are shared.
type Corrector interface {
	// Name returns the algorithm name, one of the Algo* constants.
	Name() string

	// Correct computes the feedback for one step.
	// a is the unit accelerometer direction, g the raw gyro rates, dt the
	// elapsed time in seconds. It returns the corrected gyro rates and an
	// additive correction to the quaternion derivative.
	// It may update s.IntegralFB.
	Correct(s *State, g, a [3]float64, dt float64) (gc [3]float64, qDot quaternion.Quaternion)

	// Reset applies the algorithm's policy for the integral accumulator on Init.
	Reset(s *State)
}
