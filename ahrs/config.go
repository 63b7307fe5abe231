package ahrs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownAlgorithm = errors.New("unknown AHRS algorithm")
	ErrNegativeGain     = errors.New("negative AHRS gain")
)

// Config selects the correction algorithm and its gains.
// A nil gain takes the algorithm's default. Madgwick uses Kp as its beta and ignores Ki.
type Config struct {
	Algorithm string   `json:"algorithm" yaml:"algorithm"`
	Kp        *float64 `json:"kp,omitempty" yaml:"kp,omitempty"`
	Ki        *float64 `json:"ki,omitempty" yaml:"ki,omitempty"`
}

// DefaultConfig returns the configuration for algo with its default gains.
func DefaultConfig(algo string) Config {
	c := Config{Algorithm: algo}
	c.fillDefaults()
	return c
}

func (c *Config) fillDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = AlgoMahony
	}
	c.Algorithm = strings.ToLower(c.Algorithm)

	var kp, ki float64
	switch c.Algorithm {
	case AlgoMahony:
		kp, ki = MahonyKp, MahonyKi
	case AlgoMadgwick:
		kp = MadgwickBeta
	case AlgoLegacy:
		kp, ki = LegacyKp, LegacyKi
	default:
		return
	}
	if c.Kp == nil {
		c.Kp = &kp
	}
	if c.Ki == nil {
		c.Ki = &ki
	}
}

// Validate checks the algorithm name and gains.
func (c Config) Validate() error {
	switch strings.ToLower(c.Algorithm) {
	case AlgoMahony, AlgoMadgwick, AlgoLegacy:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.Algorithm)
	}
	if c.Kp != nil && *c.Kp < 0 {
		return fmt.Errorf("%w: kp=%g", ErrNegativeGain, *c.Kp)
	}
	if c.Ki != nil && *c.Ki < 0 {
		return fmt.Errorf("%w: ki=%g", ErrNegativeGain, *c.Ki)
	}
	return nil
}

// Corrector builds the algorithm described by c.
func (c Config) Corrector() (Corrector, error) {
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Algorithm {
	case AlgoMadgwick:
		return NewMadgwick(*c.Kp), nil
	case AlgoLegacy:
		return NewLegacy(*c.Kp, *c.Ki), nil
	default:
		return NewMahony(*c.Kp, *c.Ki), nil
	}
}

// String describes the configuration, e.g. "mahony kp=0.5 ki=0.05".
func (c Config) String() string {
	c.fillDefaults()
	if c.Kp == nil || c.Ki == nil {
		return c.Algorithm
	}
	return fmt.Sprintf("%s kp=%g ki=%g", c.Algorithm, *c.Kp, *c.Ki)
}

// LoadConfig reads a configuration from a JSON or YAML file, chosen by extension.
func LoadConfig(path string) (c Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("error reading AHRS config from %s: %w", path, err)
	}
	c, err = ParseConfig(data, filepath.Ext(path))
	if err != nil {
		return c, fmt.Errorf("error reading AHRS config from %s: %w", path, err)
	}
	return c, nil
}

// ParseConfig decodes data as JSON, or YAML if ext is ".yaml" or ".yml",
// fills in default gains, and validates the result.
func ParseConfig(data []byte, ext string) (c Config, err error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return c, err
	}
	c.fillDefaults()
	return c, c.Validate()
}
