package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogColumns are the columns Run writes. T, G1..G3 and A1..A3 match what
// sensors.ReplaySource reads, so a simulation log can be replayed.
var LogColumns = []string{
	"T",
	"G1", "G2", "G3", "A1", "A2", "A3",
	"Q0", "Q1", "Q2", "Q3",
	"Phi", "Theta", "Psi",
	"PhiTrue", "ThetaTrue", "PsiTrue",
	"IFB1", "IFB2", "IFB3",
	"TiltErr", "AttErr",
}

// Logger writes rows of floats as CSV with a header line.
type Logger struct {
	w   io.Writer
	c   io.Closer
	h   []string
	fmt string
}

// NewLogger writes the header h to w.
func NewLogger(w io.Writer, h ...string) (*Logger, error) {
	l := &Logger{w: w, h: h}
	if _, err := fmt.Fprint(l.w, strings.Join(l.h, ","), "\n"); err != nil {
		return nil, err
	}
	s := strings.Repeat("%f,", len(l.h))
	l.fmt = strings.Join([]string{s[:len(s)-1], "\n"}, "")
	return l, nil
}

// CreateLogger creates the file fn and writes the header h to it.
func CreateLogger(fn string, h ...string) (*Logger, error) {
	f, err := os.Create(fn)
	if err != nil {
		return nil, err
	}
	l, err := NewLogger(f, h...)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

// Log writes one row; v must have one value per header column.
func (l *Logger) Log(v ...float64) error {
	if len(v) != len(l.h) {
		return fmt.Errorf("sim: logging %d values for %d columns", len(v), len(l.h))
	}
	vals := make([]interface{}, len(v))
	for i := range v {
		vals[i] = v[i]
	}
	_, err := fmt.Fprintf(l.w, l.fmt, vals...)
	return err
}

func (l *Logger) Close() error {
	if l.c == nil {
		return nil
	}
	return l.c.Close()
}
