/*
Prints the attitude frames arriving on a SocketCAN interface.
*/

package main

import (
	"context"
	"flag"
	"log"

	"github.com/LuisKopp/RaspberryPilot/canbus"
	"go.einride.tech/can/pkg/socketcan"
)

func main() {
	iface := flag.String("iface", "vcan0", "SocketCAN interface to listen on")
	flag.Parse()

	conn, err := socketcan.DialContext(context.Background(), "can", *iface)
	if err != nil {
		log.Fatalf("Couldn't open %s: %v\n", *iface, err)
	}
	defer conn.Close()

	var att canbus.Attitude
	recv := socketcan.NewReceiver(conn)
	for recv.Receive() {
		if recv.HasErrorFrame() {
			log.Printf("Error frame: %v\n", recv.ErrorFrame())
			continue
		}
		frame := recv.Frame()
		if err := att.Decode(frame); err != nil {
			continue
		}
		if frame.ID == canbus.IDRates {
			log.Printf("Roll %+7.2f Pitch %+7.2f Yaw %+7.2f G %5.3f Rates %+7.2f %+7.2f %+7.2f\n",
				att.Roll, att.Pitch, att.Yaw, att.GLoad, att.Rates[0], att.Rates[1], att.Rates[2])
		}
	}
	if err := recv.Err(); err != nil {
		log.Fatalln(err)
	}
}
