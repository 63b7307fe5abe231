package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/LuisKopp/RaspberryPilot/sensors"
	"github.com/skelterjohn/go.matrix"
)

// Noise is the Gaussian standard deviation added to each sensor axis.
type Noise struct {
	Gyro  float64 // °/s
	Accel float64 // G
}

// Bias is a constant offset added to each sensor axis.
type Bias struct {
	G [3]float64 // °/s
	A [3]float64 // G
}

var up = matrix.MakeDenseMatrix([]float64{0, 0, 1}, 3, 1)

// Measure synthesizes what an unaccelerated IMU would read at time t:
// the gyro sees the body rates and the accelerometer sees only gravity,
// each with bias and noise added. rng may be nil when noise is zero.
func Measure(sit Situation, t float64, noise Noise, bias Bias, rng *rand.Rand) (*sensors.IMUData, error) {
	q, err := sit.Truth(t)
	if err != nil {
		return nil, err
	}
	w, err := sit.Rates(t)
	if err != nil {
		return nil, err
	}

	// Reference up rotated into the body frame
	a := matrix.Product(ahrs.RotationMatrix(q).Transpose(), up)

	gauss := func(sd float64) float64 {
		if sd == 0 || rng == nil {
			return 0
		}
		return sd * rng.NormFloat64()
	}

	return &sensors.IMUData{
		G1: w[0]/ahrs.Deg + bias.G[0] + gauss(noise.Gyro),
		G2: w[1]/ahrs.Deg + bias.G[1] + gauss(noise.Gyro),
		G3: w[2]/ahrs.Deg + bias.G[2] + gauss(noise.Gyro),
		A1: a.Get(0, 0) + bias.A[0] + gauss(noise.Accel),
		A2: a.Get(1, 0) + bias.A[1] + gauss(noise.Accel),
		A3: a.Get(2, 0) + bias.A[2] + gauss(noise.Accel),
		T:  simDuration(t),
	}, nil
}

func simDuration(t float64) time.Duration {
	return time.Duration(math.Round(t*1e6)) * time.Microsecond
}
