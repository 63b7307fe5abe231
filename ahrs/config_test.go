package ahrs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		ext    string
		algo   string
		kp, ki float64
	}{
		{"json defaults", `{"algorithm": "mahony"}`, ".json", AlgoMahony, MahonyKp, MahonyKi},
		{"json gains", `{"algorithm": "Legacy", "kp": 1.5, "ki": 0}`, ".json", AlgoLegacy, 1.5, 0},
		{"yaml", "algorithm: madgwick\nkp: 0.1\n", ".yaml", AlgoMadgwick, 0.1, 0},
		{"yml only ki", "ki: 0.2\n", ".YML", AlgoMahony, MahonyKp, 0.2},
		{"empty", `{}`, "", AlgoMahony, MahonyKp, MahonyKi},
	}

	for _, tt := range tests {
		c, err := ParseConfig([]byte(tt.data), tt.ext)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if c.Algorithm != tt.algo || *c.Kp != tt.kp || *c.Ki != tt.ki {
			t.Errorf("%s: got %s, want %s kp=%g ki=%g", tt.name, c, tt.algo, tt.kp, tt.ki)
		}
	}
}

func TestParseConfigErrors(t *testing.T) {
	if _, err := ParseConfig([]byte(`{"algorithm": "kalman"}`), ".json"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("unknown algorithm gave %v", err)
	}
	if _, err := ParseConfig([]byte("algorithm: mahony\nki: -1\n"), ".yaml"); !errors.Is(err, ErrNegativeGain) {
		t.Errorf("negative gain gave %v", err)
	}
	if _, err := ParseConfig([]byte(`{"algorithm": `), ".json"); err == nil {
		t.Error("truncated JSON parsed without error")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ahrs.yaml")
	if err := os.WriteFile(path, []byte("algorithm: legacy\nkp: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.String() != "legacy kp=3 ki=1" {
		t.Errorf("loaded %s", c)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file gave %v", err)
	}
}

func TestNewFromConfig(t *testing.T) {
	for _, algo := range []string{AlgoMahony, AlgoMadgwick, AlgoLegacy} {
		f, err := New(DefaultConfig(algo), &ManualClock{})
		if err != nil {
			t.Fatal(err)
		}
		if f.Algorithm() != algo {
			t.Errorf("built %s for %s", f.Algorithm(), algo)
		}
	}

	if _, err := New(Config{Algorithm: "simple"}, &ManualClock{}); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("New with unknown algorithm gave %v", err)
	}
}

func TestConfigGains(t *testing.T) {
	kp, ki := 0.8, 0.0
	c, err := Config{Algorithm: AlgoMahony, Kp: &kp, Ki: &ki}.Corrector()
	if err != nil {
		t.Fatal(err)
	}
	m := c.(*Mahony)
	if m.TwoKp != 1.6 || m.TwoKi != 0 {
		t.Errorf("Mahony gains %+v", m)
	}
}
