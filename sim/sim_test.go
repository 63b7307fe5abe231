package sim

import (
	"bytes"
	"errors"
	"log"
	"math"
	"testing"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/LuisKopp/RaspberryPilot/sensors"
	"github.com/westphae/quaternion"
)

const tolerance = 1e-4

func newFilter(t *testing.T, algo string) (*ahrs.Filter, *ahrs.ManualClock) {
	clock := new(ahrs.ManualClock)
	f, err := ahrs.New(ahrs.DefaultConfig(algo), clock)
	if err != nil {
		t.Fatal(err)
	}
	return f, clock
}

func TestStaticConvergesFromLevel(t *testing.T) {
	for _, algo := range []string{ahrs.AlgoMahony, ahrs.AlgoLegacy} {
		f, clock := newFilter(t, algo)
		r, err := Run(NewStatic(15*ahrs.Deg, -10*ahrs.Deg, 0, 90), f, clock, Config{DT: 0.01, Settle: 60})
		if err != nil {
			t.Fatal(err)
		}
		if r.Tilt.Max > 0.1 || r.Algorithm != algo {
			log.Printf("Error: %s\n", r)
			t.Fail()
		}
	}
}

func TestStartAtTruth(t *testing.T) {
	// Madgwick's normalized gradient step keeps it chattering around the truth
	for _, tt := range []struct {
		algo    string
		maxTilt float64
	}{
		{ahrs.AlgoMahony, 0.01},
		{ahrs.AlgoMadgwick, 1},
		{ahrs.AlgoLegacy, 0.01},
	} {
		f, clock := newFilter(t, tt.algo)
		r, err := Run(NewStatic(20*ahrs.Deg, 5*ahrs.Deg, 40*ahrs.Deg, 10), f, clock,
			Config{DT: 0.01, StartAtTruth: true})
		if err != nil {
			t.Fatal(err)
		}
		if r.Tilt.Max > tt.maxTilt {
			log.Printf("Error: %s\n", r)
			t.Fail()
		}
	}
}

func TestConstantRateTracksTruth(t *testing.T) {
	sit, err := Scenario("spin", 10)
	if err != nil {
		t.Fatal(err)
	}
	f, clock := newFilter(t, ahrs.AlgoMahony)
	r, err := Run(sit, f, clock, Config{DT: 0.01, StartAtTruth: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.N != 1001 || r.Attitude.Final > 0.1 {
		log.Printf("Error: %s\n", r)
		t.Fail()
	}
}

func TestNoisyStatic(t *testing.T) {
	f, clock := newFilter(t, ahrs.AlgoMahony)
	r, err := Run(NewStatic(5*ahrs.Deg, 5*ahrs.Deg, 0, 90), f, clock, Config{
		DT:     0.01,
		Settle: 60,
		Seed:   7,
		Noise:  Noise{Gyro: 0.5, Accel: 0.02},
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Tilt.Mean > 2 {
		log.Printf("Error: %s\n", r)
		t.Fail()
	}
}

func TestManeuverRates(t *testing.T) {
	sit, _ := Scenario("turn", 0)
	// Mid-turn: 30° bank, 2° pitch, steady yaw rate
	phi, theta, psiDot := pi/6, pi/90, (pi/2)/30
	want := [3]float64{
		-psiDot * math.Sin(theta),
		psiDot * math.Sin(phi) * math.Cos(theta),
		psiDot * math.Cos(phi) * math.Cos(theta),
	}
	w, err := sit.Rates(30)
	if err != nil {
		t.Fatal(err)
	}
	for i := range w {
		if math.Abs(w[i]-want[i]) > tolerance {
			t.Errorf("rates at 30s %v, want %v", w, want)
			break
		}
	}

	q, _ := sit.Truth(60)
	if r, p, y := ahrs.ToEuler(q); math.Abs(r) > tolerance || math.Abs(p) > tolerance || math.Abs(y-pi/2) > tolerance {
		t.Errorf("end of turn at %f %f %f", r, p, y)
	}
	if _, err := sit.Rates(60); err != nil {
		t.Errorf("rates at the end time: %v", err)
	}
	if _, err := sit.Truth(61); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("truth past the end gave %v", err)
	}
}

func TestNewManeuver(t *testing.T) {
	if _, err := NewManeuver([]float64{0}, []float64{0}, []float64{0}, []float64{0}); err == nil {
		t.Error("accepted single-point maneuver")
	}
	if _, err := NewManeuver([]float64{0, 2, 1}, make([]float64, 3), make([]float64, 3), make([]float64, 3)); err == nil {
		t.Error("accepted unsorted times")
	}
	m, err := NewManeuver([]float64{0, 10}, []float64{0, 1}, []float64{0, 0}, []float64{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	q, _ := m.Truth(5)
	if r, _, _ := ahrs.ToEuler(q); math.Abs(r-0.5) > tolerance {
		t.Errorf("halfway roll %f", r)
	}
	if _, err := Scenario("takeoff", 1); err == nil {
		t.Error("unknown scenario accepted")
	}
}

func TestMeasure(t *testing.T) {
	bias := Bias{G: [3]float64{1, -2, 3}, A: [3]float64{0, 0, 0.05}}
	m, err := Measure(NewStatic(0, 0, 0, 1), 0.5, Noise{}, bias, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.G1 != 1 || m.G2 != -2 || m.G3 != 3 || math.Abs(m.A3-1.05) > tolerance || m.A1 != 0 || m.A2 != 0 {
		t.Errorf("level measurement %+v", m)
	}
	if m.T.Seconds() != 0.5 {
		t.Errorf("measurement time %v", m.T)
	}

	q := ahrs.FromEuler(0.4, -0.3, 2)
	m, _ = Measure(&Static{Q: q, Duration: 1}, 0, Noise{}, Bias{}, nil)
	v := ahrs.GravityEstimate(q)
	if math.Abs(m.A1-v[0]) > tolerance || math.Abs(m.A2-v[1]) > tolerance || math.Abs(m.A3-v[2]) > tolerance {
		t.Errorf("accel %f %f %f, gravity estimate %v", m.A1, m.A2, m.A3, v)
	}

	if _, err := Measure(NewStatic(0, 0, 0, 1), 2, Noise{}, Bias{}, nil); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("measurement past the end gave %v", err)
	}
}

func TestErrorAngles(t *testing.T) {
	q := ahrs.FromEuler(0.2, 0.1, 0)
	if e := TiltError(q, q); e > tolerance {
		t.Errorf("tilt error with itself %f", e)
	}
	yawed := ahrs.FromEuler(0, 0, pi/2)
	if e := TiltError(yawed, quaternion.Quaternion{W: 1}); e > tolerance {
		t.Errorf("tilt error from heading alone %f", e)
	}
	if e := AttitudeError(yawed, quaternion.Quaternion{W: 1}); math.Abs(e-90) > tolerance {
		t.Errorf("attitude error of a 90° yaw %f", e)
	}
	// Normalize leaves |q|² a few 1e-6 off 1
	nq := ahrs.Normalize(quaternion.Quaternion{W: 0.9, X: 0.1, Y: -0.2, Z: 0.3})
	if e := AttitudeError(nq, nq); e > 1e-3 {
		t.Errorf("attitude error of a nearly unit q with itself %f", e)
	}
	scaled := quaternion.Quaternion{W: 2 * nq.W, X: 2 * nq.X, Y: 2 * nq.Y, Z: 2 * nq.Z}
	if e := AttitudeError(scaled, nq); e > 1e-3 {
		t.Errorf("attitude error against a scaled copy %f", e)
	}
	// q and -q are the same attitude
	neg := quaternion.Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	if e := AttitudeError(neg, q); e > 0.01 {
		t.Errorf("attitude error against -q %f", e)
	}
}

func TestReport(t *testing.T) {
	r, err := NewReport([]float64{1, 2, 3}, []float64{4, 4, 4})
	if err != nil {
		t.Fatal(err)
	}
	if r.Tilt != (Stats{Mean: 2, StdDev: 1, Max: 3, Final: 3}) || r.Attitude.StdDev != 0 {
		t.Errorf("report %+v", r)
	}
	if r, _ = NewReport([]float64{1}, []float64{1}); r.Tilt.StdDev != 0 {
		t.Errorf("single sample stddev %f", r.Tilt.StdDev)
	}
	if _, err := NewReport(nil, nil); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty report gave %v", err)
	}

	f, clock := newFilter(t, ahrs.AlgoMahony)
	if _, err := Run(NewStatic(0, 0, 0, 1), f, clock, Config{DT: 0.1, Settle: 5}); !errors.Is(err, ErrNoSamples) {
		t.Errorf("run settling past the end gave %v", err)
	}
	if _, err := Run(NewStatic(0, 0, 0, 1), f, clock, Config{}); err == nil {
		t.Error("run with zero step succeeded")
	}
}

func TestVarianceAccumulator(t *testing.T) {
	acc := NewVarianceAccumulator(0, 0.9)
	var n, m, v float64
	for i := 0; i < 500; i++ {
		n, m, v = acc(5)
	}
	if math.Abs(n-10) > tolerance || math.Abs(m-5) > tolerance || v > tolerance {
		t.Errorf("n=%f mean=%f var=%f", n, m, v)
	}
}

type countingPublisher struct {
	n, failAt int
}

func (p *countingPublisher) Send(f *ahrs.Filter, s ahrs.Sample) error {
	p.n++
	if p.n == p.failAt {
		return errors.New("gone")
	}
	return nil
}

func TestPublisher(t *testing.T) {
	f, clock := newFilter(t, ahrs.AlgoMahony)
	pub := &countingPublisher{failAt: 3}
	r, err := Run(NewStatic(0, 0, 0, 1), f, clock, Config{DT: 0.1, Publisher: pub})
	if err != nil {
		t.Fatal(err)
	}
	if pub.n != 3 || r.N != 11 {
		t.Errorf("published %d times over %d steps", pub.n, r.N)
	}
}

func TestLogReplays(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(&buf, LogColumns...)
	if err != nil {
		t.Fatal(err)
	}
	f, clock := newFilter(t, ahrs.AlgoMahony)
	sit, _ := Scenario("spin", 5)
	r, err := Run(sit, f, clock, Config{DT: 0.01, Logger: l})
	if err != nil {
		t.Fatal(err)
	}
	want := f.Quaternion()

	src, err := sensors.NewReplaySource(&buf)
	if err != nil {
		t.Fatal(err)
	}
	g, err := ahrs.New(ahrs.DefaultConfig(ahrs.AlgoMahony), src.Clock())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	l2, _ := NewLogger(&out, LogColumns...)
	n, err := Replay(src, g, l2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != r.N {
		t.Errorf("replayed %d of %d readings", n, r.N)
	}
	if got := g.Quaternion(); AttitudeError(got, want) > 0.01 {
		t.Errorf("replay ended at %v, simulation at %v", got, want)
	}
	if !bytes.Contains(out.Bytes(), []byte("NaN")) {
		t.Error("replay log should mark the unknown truth")
	}
}

func TestLoggerColumnCount(t *testing.T) {
	var buf bytes.Buffer
	l, _ := NewLogger(&buf, "A", "B")
	if err := l.Log(1); err == nil {
		t.Error("logged a short row")
	}
	if err := l.Log(1, 2); err != nil || buf.String() != "A,B\n1.000000,2.000000\n" {
		t.Errorf("log contents %q, %v", buf.String(), err)
	}
	if l.Close() != nil {
		t.Error("close of a writer logger failed")
	}
}

func TestMultiPublisher(t *testing.T) {
	a, b := &countingPublisher{}, &countingPublisher{failAt: 2}
	f, clock := newFilter(t, ahrs.AlgoMadgwick)
	if _, err := Run(NewStatic(0, 0, 0, 1), f, clock, Config{DT: 0.1, Publisher: MultiPublisher(a, b)}); err != nil {
		t.Fatal(err)
	}
	// b is dropped after failing; a keeps getting every step
	if a.n != 11 || b.n != 2 {
		t.Errorf("published %d and %d times", a.n, b.n)
	}
}

func TestMultiPublisherAllFailed(t *testing.T) {
	a, b := &countingPublisher{failAt: 1}, &countingPublisher{failAt: 2}
	m := MultiPublisher(a, b)
	f, _ := newFilter(t, ahrs.AlgoMahony)
	var s ahrs.Sample
	if err := m.Send(f, s); err != nil {
		t.Fatalf("one publisher left, got %v", err)
	}
	if err := m.Send(f, s); !errors.Is(err, ErrNoPublishers) {
		t.Errorf("no publishers left, got %v", err)
	}
	if a.n != 1 || b.n != 2 {
		t.Errorf("published %d and %d times", a.n, b.n)
	}
}
