/*
Prints the iLevil AHRS messages arriving on the GDL90 port.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"net"

	"github.com/LuisKopp/RaspberryPilot/gdl90"
)

func main() {
	addr := flag.String("addr", fmt.Sprintf(":%d", gdl90.Port), "UDP address to listen on")
	flag.Parse()

	conn, err := net.ListenPacket("udp", *addr)
	if err != nil {
		log.Fatalf("Couldn't listen on UDP: %v\n", err)
	}
	defer conn.Close()

	ahrsMsg := new(gdl90.AHRSMsg)
	buffer := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFrom(buffer)
		if err != nil {
			log.Printf("Error: %v\n", err)
			continue
		}
		if err = ahrsMsg.Decode(buffer[:n]); err != nil {
			continue
		}
		for _, v := range []struct {
			name string
			get  func() (float64, error)
		}{
			{"Roll", ahrsMsg.Roll},
			{"Pitch", ahrsMsg.Pitch},
			{"Yaw", ahrsMsg.Yaw},
			{"Inclination", ahrsMsg.Inclination},
			{"TurnCoord", ahrsMsg.TurnCoord},
			{"GLoad", ahrsMsg.GLoad},
			{"KIAS", ahrsMsg.KIAS},
			{"PAlt", ahrsMsg.PAlt},
			{"VertSpeed", ahrsMsg.VertSpeed},
		} {
			if x, err := v.get(); err == nil {
				log.Printf("%12s %+6.1f", v.name, x)
			}
		}
		log.Println()
	}
}
