/*
Relays attitude snapshots from a running filter (see ahrsweb.Listener) to any
browser connected to /ahrsweb.
*/

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/LuisKopp/RaspberryPilot/ahrsweb"
)

func main() {
	var (
		addr = flag.String("addr", fmt.Sprintf(":%d", ahrsweb.Port), "The port for the AHRS data publication.")
		res  = flag.String("res", "", "Directory of static files to serve at /, none if empty.")
	)
	flag.Parse()

	// get the room going
	room := ahrsweb.NewRoom()
	go room.Run()

	log.Println("AHRSWeb: Starting web server on", *addr)
	if err := http.ListenAndServe(*addr, ahrsweb.NewRouter(room, *res)); err != nil {
		log.Fatal("AHRSWeb: ListenAndServe fatal error:", err.Error())
	}
}
