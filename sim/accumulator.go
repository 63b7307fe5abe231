package sim

// NewVarianceAccumulator returns a running estimator of the exponentially
// weighted mean and variance of the values passed to it, seeded with init.
// Each call returns the effective number of observations, the mean and the variance.
func NewVarianceAccumulator(init, decay float64) func(float64) (float64, float64, float64) {
	var (
		n = 1.0
		m = init
		v = 0.0
	)

	return func(obs float64) (float64, float64, float64) {
		d := obs - m
		dm := (1 - decay) * d

		n = 1 + decay*n
		m += dm
		v = decay * (v + dm*d)
		return n, m, v
	}
}
