/*
Estimates the bias of an IMU from a recording made while it sat still and level,
then stores it in a calibration database or JSON file.
*/

package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/LuisKopp/RaspberryPilot/sensors"
)

func main() {
	var (
		in, db, name, out string
		n                 int
	)
	flag.StringVar(&in, "in", "", "CSV sensor log recorded at rest")
	flag.IntVar(&n, "n", 1000, "Number of readings to average")
	flag.StringVar(&db, "db", "", "Calibration database to store the result in")
	flag.StringVar(&name, "name", "imu", "Name of the chip in the calibration database")
	flag.StringVar(&out, "out", "", "JSON file to save the result to")
	flag.Parse()

	if in == "" {
		log.Fatalln("Calibrate: -in is required")
	}
	src, err := sensors.OpenReplay(in)
	if err != nil {
		log.Fatalln(err)
	}
	defer src.Close()

	avg, count, err := sensors.Average(src, n)
	if err != nil {
		log.Fatalln(err)
	}
	cal := sensors.LevelCalibration(avg)
	fmt.Printf("Averaged %d readings\n", count)
	fmt.Printf("\tGyro bias:  %f,%f,%f\n", cal.G01, cal.G02, cal.G03)
	fmt.Printf("\tAccel bias: %f,%f,%f\n", cal.A01, cal.A02, cal.A03)

	if out != "" {
		if err := cal.Save(out); err != nil {
			log.Fatalln(err)
		}
	}
	if db != "" {
		s, err := sensors.OpenCalStore(db)
		if err != nil {
			log.Fatalln(err)
		}
		defer s.Close()
		if err := s.Put(name, &cal); err != nil {
			log.Fatalln(err)
		}
	}
}
