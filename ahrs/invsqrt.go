package ahrs

import "math"

const (
	invSqrtMagic64 = 0x5FE6EB50C7B537A9
	invSqrtMagic32 = 0x5f3759df
)

// InvSqrt returns an approximation of 1/sqrt(x), within about 0.2%.
// x must be positive and finite; anything else returns garbage.
func InvSqrt(x float64) float64 {
	halfx := 0.5 * x
	y := math.Float64frombits(invSqrtMagic64 - (math.Float64bits(x) >> 1))
	return y * (1.5 - halfx*y*y)
}

// InvSqrt32 is InvSqrt for float32, with the classic magic constant.
func InvSqrt32(x float32) float32 {
	halfx := 0.5 * x
	y := math.Float32frombits(invSqrtMagic32 - (math.Float32bits(x) >> 1))
	return y * (1.5 - halfx*y*y)
}
