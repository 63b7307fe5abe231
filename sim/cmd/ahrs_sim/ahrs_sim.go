/*
Test out the AHRS code in ahrs/.
Define an attitude history in code, synthesize the matching gyro and accel data,
adding noise and bias if desired, and see how well the filter recovers the "true" attitude.
With -replay, run the filter over a recorded sensor log instead.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/LuisKopp/RaspberryPilot/ahrsweb"
	"github.com/LuisKopp/RaspberryPilot/canbus"
	"github.com/LuisKopp/RaspberryPilot/gdl90"
	"github.com/LuisKopp/RaspberryPilot/sensors"
	"github.com/LuisKopp/RaspberryPilot/sim"
	"github.com/google/uuid"
)

func parseFloatArrayString(str string, a *[3]float64) (err error) {
	parts := strings.Split(str, ",")
	if len(parts) != 3 {
		return fmt.Errorf("need 3 comma-separated values, got %d", len(parts))
	}
	for i, s := range parts {
		(*a)[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			break
		}
	}
	return
}

func loadCalibration(fn, db, name string) (*sensors.IMUCalData, error) {
	switch {
	case fn != "":
		cal := new(sensors.IMUCalData)
		return cal, cal.Load(fn)
	case db != "":
		s, err := sensors.OpenCalStore(db)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.Get(name)
	}
	return nil, nil
}

func main() {
	// Handle some shell arguments
	var (
		dt, duration, settle      float64
		gyroNoise, accelNoise     float64
		gyroBiasStr, accelBiasStr string
		algo, configFile          string
		scenario, logFile, replay string
		web                       bool
		webURL, gdl90Addr         string
		canIface                  string
		calFile, calDB, calName   string
		mqttAddr, mqttTopic       string
		serialDev                 string
		baud                      int
		startAtTruth              bool
		seed                      int64
		bias                      sim.Bias
	)

	const (
		defaultDt         = 0.01
		dtUsage           = "Filter update period, seconds"
		defaultDuration   = 60.0
		durationUsage     = "Length of the static and spin scenarios, seconds"
		defaultSettle     = 10.0
		settleUsage       = "Seconds at the start left out of the error statistics"
		defaultGyroNoise  = 0.0
		gyroNoiseUsage    = "Amount of noise to add to gyro measurements, °/s"
		defaultGyroBias   = "0,0,0"
		gyroBiasUsage     = "Amount of bias to add to gyro measurements, \"x,y,z\" °/s"
		defaultAccelNoise = 0.0
		accelNoiseUsage   = "Amount of noise to add to accel measurements, G"
		defaultAccelBias  = "0,0,0"
		accelBiasUsage    = "Amount of bias to add to accel measurements, \"x,y,z\" G"
		defaultScenario   = "static"
		scenarioUsage     = "Scenario to use: \"static\", \"spin\" or \"turn\""
		defaultAlgo       = ahrs.AlgoMahony
		algoUsage         = "Algo to use for AHRS: mahony (default), madgwick, legacy"
		configUsage       = "JSON or YAML filter config file, overrides -algo"
		logUsage          = "CSV file to log every step to"
		replayUsage       = "CSV sensor log to run the filter over instead of a scenario"
		webUsage          = "Publish each step to an ahrsweb server"
		webURLUsage       = "Websocket URL of the ahrsweb room"
		truthUsage        = "Start the filter at the true attitude"
		gdl90Usage        = "UDP address to send iLevil AHRS messages to, e.g. 192.168.10.255:4000"
		canUsage          = "SocketCAN interface to send attitude frames on, e.g. vcan0"
	)

	flag.Float64Var(&dt, "dt", defaultDt, dtUsage)
	flag.Float64Var(&duration, "duration", defaultDuration, durationUsage)
	flag.Float64Var(&settle, "settle", defaultSettle, settleUsage)
	flag.Float64Var(&gyroNoise, "gyro-noise", defaultGyroNoise, gyroNoiseUsage)
	flag.Float64Var(&gyroNoise, "g", defaultGyroNoise, gyroNoiseUsage)
	flag.StringVar(&gyroBiasStr, "gyro-bias", defaultGyroBias, gyroBiasUsage)
	flag.StringVar(&gyroBiasStr, "h", defaultGyroBias, gyroBiasUsage)
	flag.Float64Var(&accelNoise, "accel-noise", defaultAccelNoise, accelNoiseUsage)
	flag.Float64Var(&accelNoise, "a", defaultAccelNoise, accelNoiseUsage)
	flag.StringVar(&accelBiasStr, "accel-bias", defaultAccelBias, accelBiasUsage)
	flag.StringVar(&accelBiasStr, "i", defaultAccelBias, accelBiasUsage)
	flag.StringVar(&scenario, "scenario", defaultScenario, scenarioUsage)
	flag.StringVar(&scenario, "s", defaultScenario, scenarioUsage)
	flag.StringVar(&algo, "algo", defaultAlgo, algoUsage)
	flag.StringVar(&configFile, "config", "", configUsage)
	flag.StringVar(&logFile, "log", "", logUsage)
	flag.StringVar(&replay, "replay", "", replayUsage)
	flag.BoolVar(&web, "web", false, webUsage)
	flag.StringVar(&webURL, "web-url", ahrsweb.DefaultURL.String(), webURLUsage)
	flag.StringVar(&gdl90Addr, "gdl90", "", gdl90Usage)
	flag.StringVar(&canIface, "can", "", canUsage)
	flag.StringVar(&mqttAddr, "mqtt", "", "MQTT broker to publish each step to, e.g. localhost:1883")
	flag.StringVar(&mqttTopic, "mqtt-topic", ahrsweb.DefaultTopic, "MQTT topic to publish on")
	flag.StringVar(&serialDev, "serial", "", "Serial device streaming CSV sensor readings, run live instead of a scenario")
	flag.IntVar(&baud, "baud", 115200, "Baud rate of -serial")
	flag.StringVar(&calFile, "cal", "", "JSON calibration to remove from replayed readings")
	flag.StringVar(&calDB, "cal-db", "", "Calibration database to look up -cal-name in for replay")
	flag.StringVar(&calName, "cal-name", "imu", "Chip to use from -cal-db")
	flag.BoolVar(&startAtTruth, "truth", false, truthUsage)
	flag.Int64Var(&seed, "seed", 1, "Random seed for the sensor noise")
	flag.Parse()

	cfg := ahrs.DefaultConfig(algo)
	if configFile != "" {
		var err error
		if cfg, err = ahrs.LoadConfig(configFile); err != nil {
			log.Fatalln(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	if err := parseFloatArrayString(gyroBiasStr, &bias.G); err != nil {
		log.Fatalf("Error %v parsing %s\n", err, gyroBiasStr)
	}
	if err := parseFloatArrayString(accelBiasStr, &bias.A); err != nil {
		log.Fatalf("Error %v parsing %s\n", err, accelBiasStr)
	}

	var logger *sim.Logger
	if logFile != "" {
		var err error
		if logger, err = sim.CreateLogger(logFile, sim.LogColumns...); err != nil {
			log.Fatalln(err)
		}
		defer logger.Close()
	}

	var pubs []sim.Publisher
	if web {
		l, err := ahrsweb.NewListener(webURL)
		if err != nil {
			log.Fatalf("Sim: can't connect to %s: %s\n", webURL, err)
		}
		defer l.Close()
		pubs = append(pubs, l)
	}
	if mqttAddr != "" {
		p, err := ahrsweb.NewMQTTPublisher(mqttAddr, "ahrs_sim-"+uuid.NewString(), mqttTopic)
		if err != nil {
			log.Fatalln(err)
		}
		defer p.Close()
		p.MinInterval = 50 * time.Millisecond
		pubs = append(pubs, p)
	}
	if gdl90Addr != "" {
		s, err := gdl90.NewSender(gdl90Addr)
		if err != nil {
			log.Fatalf("Sim: can't send to %s: %s\n", gdl90Addr, err)
		}
		defer s.Close()
		pubs = append(pubs, s)
	}
	if canIface != "" {
		s, err := canbus.NewSender(context.Background(), canIface)
		if err != nil {
			log.Fatalf("Sim: can't open %s: %s\n", canIface, err)
		}
		defer s.Close()
		pubs = append(pubs, s)
	}
	var pub sim.Publisher
	if len(pubs) > 0 {
		pub = sim.MultiPublisher(pubs...)
	}

	fmt.Println("Filter:", cfg)

	if replay != "" || serialDev != "" {
		var (
			src *sensors.ReplaySource
			err error
		)
		if serialDev != "" {
			src, err = sensors.OpenSerial(serialDev, baud)
			replay = serialDev
		} else {
			src, err = sensors.OpenReplay(replay)
		}
		if err != nil {
			log.Fatalln(err)
		}
		defer src.Close()
		cal, err := loadCalibration(calFile, calDB, calName)
		if err != nil {
			log.Fatalln(err)
		}
		var readings sensors.Source = src
		if cal != nil {
			readings = sensors.Calibrated(src, cal)
		}
		f, err := ahrs.New(cfg, src.Clock())
		if err != nil {
			log.Fatalln(err)
		}
		fmt.Printf("Replaying %s\n", replay)
		n, err := sim.Replay(readings, f, logger, pub)
		if err != nil {
			log.Printf("Sim: replay stopped: %s\n", err)
		}
		roll, pitch, yaw := f.State().RollPitchYaw()
		fmt.Printf("%d readings, final attitude roll %.2f° pitch %.2f° yaw %.2f°\n", n, roll, pitch, yaw)
		return
	}

	sit, err := sim.Scenario(scenario, duration)
	if err != nil {
		log.Fatalln(err)
	}
	clock := new(ahrs.ManualClock)
	f, err := ahrs.New(cfg, clock)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Simulation parameters:")
	fmt.Printf("\tScenario: %s, %.1f s\n", scenario, sit.EndTime()-sit.BeginTime())
	fmt.Printf("\tUpdate Frequency: %d Hz\n", int(1/dt+0.5))
	fmt.Println("Accelerometer:")
	fmt.Printf("\tNoise: %f G\n", accelNoise)
	fmt.Printf("\tBias: %f,%f,%f\n", bias.A[0], bias.A[1], bias.A[2])
	fmt.Println("Gyro:")
	fmt.Printf("\tNoise: %f °/s\n", gyroNoise)
	fmt.Printf("\tBias: %f,%f,%f\n", bias.G[0], bias.G[1], bias.G[2])

	// This is where it all happens
	fmt.Println("Running Simulation")
	r, err := sim.Run(sit, f, clock, sim.Config{
		DT:           dt,
		Noise:        sim.Noise{Gyro: gyroNoise, Accel: accelNoise},
		Bias:         bias,
		Seed:         seed,
		Settle:       settle,
		StartAtTruth: startAtTruth,
		LogEvery:     5,
		Logger:       logger,
		Publisher:    pub,
	})
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Println(r)
}
