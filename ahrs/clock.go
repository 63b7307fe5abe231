package ahrs

import "time"

// Clock provides monotonic time readings for computing the integration step.
// Only differences between readings are used.
type Clock interface {
	Now() time.Duration
}

// ClockFunc adapts a function to a Clock.
type ClockFunc func() time.Duration

func (f ClockFunc) Now() time.Duration {
	return f()
}

// SystemClock reads the monotonic wall clock, relative to its creation.
type SystemClock struct {
	t0 time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{t0: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.t0)
}

// ManualClock only moves when told to.
type ManualClock struct {
	t time.Duration
}

func (c *ManualClock) Now() time.Duration {
	return c.t
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Duration) {
	c.t = t
}

// Advance moves the clock forward by dt.
func (c *ManualClock) Advance(dt time.Duration) {
	c.t += dt
}

// TickClock advances by a fixed period every time it is read,
// for driving the filter at a nominal sample rate.
type TickClock struct {
	Period time.Duration
	t      time.Duration
}

func NewTickClock(hz float64) *TickClock {
	return &TickClock{Period: time.Duration(float64(time.Second) / hz)}
}

func (c *TickClock) Now() time.Duration {
	t := c.t
	c.t += c.Period
	return t
}

// seconds converts a clock difference to seconds at microsecond resolution.
func seconds(d time.Duration) float64 {
	us := d / time.Microsecond
	return float64(us/1e6) + float64(us%1e6)*0.000001
}
