package sensors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"
)

var (
	calBucket = []byte("calibration")

	// ErrNoCalibration is returned for a chip with nothing stored.
	ErrNoCalibration = errors.New("sensors: no calibration stored")
)

// CalStore keeps the calibration of several chips in one bolt database, keyed by name.
type CalStore struct {
	db *bolt.DB
}

// OpenCalStore opens or creates the database at fn.
func OpenCalStore(fn string) (*CalStore, error) {
	db, err := bolt.Open(fn, os.FileMode(0644), &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("sensors: opening calibration store %s: %w", fn, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(calBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &CalStore{db: db}, nil
}

// Put stores cal under name, replacing what was there.
func (s *CalStore) Put(name string, cal *IMUCalData) error {
	buf, err := json.Marshal(cal)
	if err != nil {
		return fmt.Errorf("error marshaling imu calibration data: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(calBucket).Put([]byte(name), buf)
	})
}

// Get loads the calibration stored under name.
func (s *CalStore) Get(name string) (*IMUCalData, error) {
	cal := new(IMUCalData)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(calBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w for %q", ErrNoCalibration, name)
		}
		return json.Unmarshal(v, cal)
	})
	if err != nil {
		return nil, err
	}
	return cal, nil
}

// Names lists the chips with a stored calibration, in key order.
func (s *CalStore) Names() (names []string, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(calBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return
}

func (s *CalStore) Close() error {
	return s.db.Close()
}
