package ahrs

import (
	"math"

	"github.com/skelterjohn/go.matrix"
	"github.com/westphae/quaternion"
)

// ToEuler calculates the roll, pitch and yaw (ZYX Tait-Bryan, radians)
// corresponding to the body-to-reference quaternion q.
func ToEuler(q quaternion.Quaternion) (roll, pitch, yaw float64) {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	roll = math.Atan2(2*(q0*q1+q2*q3), 1-2*(q1*q1+q2*q2))
	sp := 2 * (q0*q2 - q3*q1)
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)
	yaw = math.Atan2(2*(q0*q3+q1*q2), 1-2*(q2*q2+q3*q3))
	return
}

// FromEuler calculates the quaternion corresponding to roll, pitch and yaw
// in radians, ZYX convention.
func FromEuler(roll, pitch, yaw float64) quaternion.Quaternion {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	return quaternion.Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// RotationMatrix returns the 3x3 matrix rotating body frame vectors into the
// reference frame, X_r = R*X_b. The last row is GravityEstimate(q).
func RotationMatrix(q quaternion.Quaternion) *matrix.DenseMatrix {
	q0, q1, q2, q3 := q.W, q.X, q.Y, q.Z
	return matrix.MakeDenseMatrixStacked([][]float64{
		{q0*q0 + q1*q1 - q2*q2 - q3*q3, 2 * (q1*q2 - q0*q3), 2 * (q1*q3 + q0*q2)},
		{2 * (q1*q2 + q0*q3), q0*q0 - q1*q1 + q2*q2 - q3*q3, 2 * (q2*q3 - q0*q1)},
		{2 * (q1*q3 - q0*q2), 2 * (q2*q3 + q0*q1), q0*q0 - q1*q1 - q2*q2 + q3*q3},
	})
}

// TiltAngle returns the angle in radians between the reference up direction
// and the body z axis.
func TiltAngle(q quaternion.Quaternion) float64 {
	v := GravityEstimate(q)
	c := v[2] / math.Sqrt(v[0]*v[0]+v[1]*v[1]+v[2]*v[2])
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}
