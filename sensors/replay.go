package sensors

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"time"
)

var ErrMissingColumn = errors.New("replay log is missing a column")

var replayColumns = []string{"T", "G1", "G2", "G3", "A1", "A2", "A3"}

// ReplaySource reads IMU readings back from a CSV log.
// The header must name at least the columns T (seconds), G1, G2, G3 (°/s)
// and A1, A2, A3 (G); other columns are ignored.
// Rows that can't be parsed are logged and skipped; a failing reader ends the replay.
type ReplaySource struct {
	r      *csv.Reader
	c      io.Closer
	fields map[string]int
	clock  *ReplayClock
	line   int
}

// OpenReplay opens the CSV log fn.
func OpenReplay(fn string) (*ReplaySource, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	s, err := NewReplaySource(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	s.c = f
	return s, nil
}

// NewReplaySource reads a CSV log from r, starting with its header.
func NewReplaySource(r io.Reader) (*ReplaySource, error) {
	s := &ReplaySource{
		r:      csv.NewReader(r),
		fields: make(map[string]int),
		clock:  new(ReplayClock),
	}
	s.r.FieldsPerRecord = -1
	s.r.TrimLeadingSpace = true

	rec, err := s.r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading replay header: %w", err)
	}
	s.line++
	for i, k := range rec {
		s.fields[k] = i
	}
	for _, k := range replayColumns {
		if _, ok := s.fields[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
	}
	return s, nil
}

// Next returns the next good reading and moves the replay clock to its timestamp.
func (s *ReplaySource) Next() (*IMUData, error) {
	for {
		rec, err := s.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		s.line++
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("sensors: reading line %d: %w", s.line, err)
			}
			log.Printf("Sensors: csv %s, skipping this one\n", err)
			continue
		}

		var v [7]float64
		ok := true
		for j, k := range replayColumns {
			i := s.fields[k]
			if i >= len(rec) {
				log.Printf("Sensors: line %d is short, skipping this one\n", s.line)
				ok = false
				break
			}
			if v[j], err = strconv.ParseFloat(rec[i], 64); err != nil {
				log.Printf("Sensors: csv contains bad data at line %d: %s, skipping this one\n", s.line, err)
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		d := &IMUData{
			G1: v[1], G2: v[2], G3: v[3],
			A1: v[4], A2: v[5], A3: v[6],
			T: time.Duration(math.Round(v[0]*1e6)) * time.Microsecond,
		}
		s.clock.t = d.T
		return d, nil
	}
}

// Clock returns the clock that follows the replayed timestamps.
func (s *ReplaySource) Clock() *ReplayClock {
	return s.clock
}

// Close closes the underlying file, if OpenReplay opened one.
func (s *ReplaySource) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// ReplayClock reports the timestamp of the last reading a ReplaySource returned,
// so a filter driven from a log integrates over the recorded intervals.
type ReplayClock struct {
	t time.Duration
}

func (c *ReplayClock) Now() time.Duration {
	return c.t
}
