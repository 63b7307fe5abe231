// Package sensors provides the IMU readings fed to the attitude filter and
// sources that produce them. Reading the hardware itself happens elsewhere.
package sensors

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
)

// Source produces IMU readings in time order. Next returns io.EOF when exhausted.
type Source interface {
	Next() (*IMUData, error)
}

// IMUData contains one reading from an MPU9250, ICM20948 or equivalent.
// The gyro is in °/s and the accelerometer in G, as the chips report them.
type IMUData struct {
	G1, G2, G3 float64
	A1, A2, A3 float64
	T          time.Duration // Time of the reading relative to the start of the source
}

// Sample converts the reading to the filter's units (rad/s).
func (d *IMUData) Sample() ahrs.Sample {
	return ahrs.Sample{
		G: [3]float64{d.G1 * ahrs.Deg, d.G2 * ahrs.Deg, d.G3 * ahrs.Deg},
		A: [3]float64{d.A1, d.A2, d.A3},
	}
}

// IMUCalData holds the bias measured for a particular chip.
type IMUCalData struct {
	A01, A02, A03 float64 // Accelerometer hardware bias
	G01, G02, G03 float64 // Gyro hardware bias
}

// Apply removes the bias from d.
func (c *IMUCalData) Apply(d *IMUData) {
	d.G1 -= c.G01
	d.G2 -= c.G02
	d.G3 -= c.G03
	d.A1 -= c.A01
	d.A2 -= c.A02
	d.A3 -= c.A03
}

// LevelCalibration takes the average of readings from a chip sitting still
// and level, so the gyro should read zero and the accelerometer (0, 0, 1).
func LevelCalibration(avg IMUData) IMUCalData {
	return IMUCalData{
		A01: avg.A1, A02: avg.A2, A03: avg.A3 - 1,
		G01: avg.G1, G02: avg.G2, G03: avg.G3,
	}
}

// Save writes the calibration as JSON to fn.
func (c *IMUCalData) Save(fn string) error {
	fd, err := os.OpenFile(fn, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(0644))
	if err != nil {
		return fmt.Errorf("error saving imu calibration data to %s: %w", fn, err)
	}
	defer fd.Close()
	calData, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("error marshaling imu calibration data: %w", err)
	}
	_, err = fd.Write(calData)
	return err
}

// Load reads a calibration saved by Save.
func (c *IMUCalData) Load(fn string) error {
	errstr := "error reading imu calibration data from %s: %w"
	fd, err := os.Open(fn)
	if err != nil {
		return fmt.Errorf(errstr, fn, err)
	}
	defer fd.Close()
	buf, err := io.ReadAll(fd)
	if err != nil {
		return fmt.Errorf(errstr, fn, err)
	}
	if err = json.Unmarshal(buf, c); err != nil {
		return fmt.Errorf(errstr, fn, err)
	}
	return nil
}

// Calibrated wraps src so every reading has cal removed.
func Calibrated(src Source, cal *IMUCalData) Source {
	return calibrated{src, cal}
}

type calibrated struct {
	src Source
	cal *IMUCalData
}

func (c calibrated) Next() (*IMUData, error) {
	d, err := c.src.Next()
	if d != nil {
		c.cal.Apply(d)
	}
	return d, err
}

// Average returns the mean of up to n readings from src, for estimating the
// gyro bias while the sensor sits still.
func Average(src Source, n int) (avg IMUData, count int, err error) {
	for count < n {
		d, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return avg, count, err
		}
		avg.G1 += d.G1
		avg.G2 += d.G2
		avg.G3 += d.G3
		avg.A1 += d.A1
		avg.A2 += d.A2
		avg.A3 += d.A3
		avg.T = d.T
		count++
	}
	if count == 0 {
		log.Println("Sensors: no readings to average")
		return avg, 0, io.EOF
	}
	k := 1 / float64(count)
	avg.G1 *= k
	avg.G2 *= k
	avg.G3 *= k
	avg.A1 *= k
	avg.A2 *= k
	avg.A3 *= k
	return avg, count, nil
}
