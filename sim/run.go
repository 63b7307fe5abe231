package sim

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/LuisKopp/RaspberryPilot/sensors"
	"github.com/westphae/quaternion"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Publisher receives a snapshot of the filter after each step, e.g. an ahrsweb.Listener.
type Publisher interface {
	Send(f *ahrs.Filter, s ahrs.Sample) error
}

// ErrNoPublishers is returned by a MultiPublisher once every member has failed.
var ErrNoPublishers = errors.New("sim: every publisher has failed")

type multiPublisher struct {
	pubs []Publisher
}

// MultiPublisher sends to each of p in turn.
// A member whose Send fails is logged and dropped; the others carry on.
func MultiPublisher(p ...Publisher) Publisher {
	return &multiPublisher{pubs: append([]Publisher(nil), p...)}
}

func (m *multiPublisher) Send(f *ahrs.Filter, s ahrs.Sample) error {
	live := m.pubs[:0]
	for _, p := range m.pubs {
		if err := p.Send(f, s); err != nil {
			log.Printf("Sim: dropping a publisher: %s\n", err)
			continue
		}
		live = append(live, p)
	}
	m.pubs = live
	if len(m.pubs) == 0 {
		return ErrNoPublishers
	}
	return nil
}

// Config controls a simulation run.
type Config struct {
	DT           float64 // Filter step, s
	Noise        Noise
	Bias         Bias
	Seed         int64
	Settle       float64 // Seconds at the start excluded from the report
	StartAtTruth bool    // Start the filter at the true attitude instead of identity
	LogEvery     float64 // Seconds between progress log lines, 0 for none

	Logger    *Logger   // Optional per-step CSV log with LogColumns
	Publisher Publisher // Optional live output
}

// Run drives f through sit with synthesized measurements, stepping clock
// by cfg.DT, and reports the attitude error against the truth.
// f must have been built with clock.
func Run(sit Situation, f *ahrs.Filter, clock *ahrs.ManualClock, cfg Config) (*Report, error) {
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("sim: step must be positive, got %g", cfg.DT)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	pub := cfg.Publisher

	f.Init()
	t0 := sit.BeginTime()
	if cfg.StartAtTruth {
		q, err := sit.Truth(t0)
		if err != nil {
			return nil, err
		}
		f.SetAttitude(q)
	}

	var tilts, atts []float64
	acc := NewVarianceAccumulator(0, 0.99)
	nextLog := t0 + cfg.LogEvery

	for i := 0; ; i++ {
		t := t0 + float64(i)*cfg.DT
		if t > sit.EndTime()+1e-9 {
			break
		}

		m, err := Measure(sit, t, cfg.Noise, cfg.Bias, rng)
		if err != nil {
			return nil, fmt.Errorf("sim: measurement at %f: %w", t, err)
		}
		truth, _ := sit.Truth(t)

		clock.Set(m.T)
		s := m.Sample()
		q := f.UpdateSample(s)

		tiltErr, attErr := TiltError(q, truth), AttitudeError(q, truth)
		if t >= t0+cfg.Settle {
			tilts = append(tilts, tiltErr)
			atts = append(atts, attErr)
		}
		_, mean, v := acc(tiltErr)

		if cfg.Logger != nil {
			if err := logStep(cfg.Logger, t, m, f.State(), truth, tiltErr, attErr); err != nil {
				return nil, err
			}
		}
		if pub != nil {
			if err := pub.Send(f, s); err != nil {
				log.Printf("Sim: publishing failed, no longer publishing: %s\n", err)
				pub = nil
			}
		}
		if cfg.LogEvery > 0 && t >= nextLog {
			log.Printf("Sim: t=%.2f tilt error %.3f ± %.3f°\n", t, mean, math.Sqrt(v))
			nextLog += cfg.LogEvery
		}
	}

	r, err := NewReport(tilts, atts)
	if err != nil {
		return nil, err
	}
	r.Algorithm = f.Algorithm()
	return r, nil
}

// Replay drives f with every reading from src and returns how many were used.
// f's clock should follow src, e.g. a sensors.ReplaySource's Clock.
// The truth columns of the log are NaN.
func Replay(src sensors.Source, f *ahrs.Filter, l *Logger, pub Publisher) (n int, err error) {
	nan := math.NaN()
	unknown := quaternion.Quaternion{W: nan, X: nan, Y: nan, Z: nan}
	for {
		m, err := src.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		s := m.Sample()
		f.UpdateSample(s)
		n++

		if l != nil {
			if err := logStep(l, m.T.Seconds(), m, f.State(), unknown, nan, nan); err != nil {
				return n, err
			}
		}
		if pub != nil {
			if err := pub.Send(f, s); err != nil {
				log.Printf("Sim: publishing failed, no longer publishing: %s\n", err)
				pub = nil
			}
		}
	}
}

func logStep(l *Logger, t float64, m *sensors.IMUData, s ahrs.State, truth quaternion.Quaternion, tiltErr, attErr float64) error {
	phi, theta, psi := s.RollPitchYaw()
	phi0, theta0, psi0 := ahrs.ToEuler(truth)
	return l.Log(
		t,
		m.G1, m.G2, m.G3, m.A1, m.A2, m.A3,
		s.Q.W, s.Q.X, s.Q.Y, s.Q.Z,
		phi, theta, psi,
		phi0/ahrs.Deg, theta0/ahrs.Deg, psi0/ahrs.Deg,
		s.IntegralFB[0], s.IntegralFB[1], s.IntegralFB[2],
		tiltErr, attErr,
	)
}

// TiltError is the angle in degrees between the up directions of q and truth.
// It ignores heading, which the accelerometer can't observe.
func TiltError(q, truth quaternion.Quaternion) float64 {
	u, v := ahrs.GravityEstimate(q), ahrs.GravityEstimate(truth)
	c := (u[0]*v[0] + u[1]*v[1] + u[2]*v[2]) /
		math.Sqrt((u[0]*u[0]+u[1]*u[1]+u[2]*u[2])*(v[0]*v[0]+v[1]*v[1]+v[2]*v[2]))
	return math.Acos(math.Max(-1, math.Min(1, c))) / ahrs.Deg
}

// AttitudeError is the angle in degrees of the rotation taking truth to q.
// Neither needs to be exactly unit.
func AttitudeError(q, truth quaternion.Quaternion) float64 {
	d := math.Abs(q.W*truth.W+q.X*truth.X+q.Y*truth.Y+q.Z*truth.Z) /
		math.Sqrt(norm2(q)*norm2(truth))
	return 2 * math.Acos(math.Min(1, d)) / ahrs.Deg
}

func norm2(q quaternion.Quaternion) float64 {
	return q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
}

var ErrNoSamples = errors.New("sim: no samples to report on")

// Stats summarizes an error series, in degrees.
type Stats struct {
	Mean, StdDev, Max, Final float64
}

func newStats(x []float64) Stats {
	mean, sd := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		sd = 0
	}
	return Stats{Mean: mean, StdDev: sd, Max: floats.Max(x), Final: x[len(x)-1]}
}

func (s Stats) String() string {
	return fmt.Sprintf("mean %.3f°, stddev %.3f°, max %.3f°, final %.3f°", s.Mean, s.StdDev, s.Max, s.Final)
}

// Report is the result of a simulation run.
type Report struct {
	Algorithm string
	N         int
	Tilt      Stats // Error in the up direction
	Attitude  Stats // Full attitude error, including heading drift
}

// NewReport summarizes matching tilt and attitude error series.
func NewReport(tilt, att []float64) (*Report, error) {
	if len(tilt) == 0 || len(tilt) != len(att) {
		return nil, ErrNoSamples
	}
	return &Report{N: len(tilt), Tilt: newStats(tilt), Attitude: newStats(att)}, nil
}

func (r *Report) String() string {
	return fmt.Sprintf("%s over %d steps\n\tTilt:     %s\n\tAttitude: %s", r.Algorithm, r.N, r.Tilt, r.Attitude)
}
