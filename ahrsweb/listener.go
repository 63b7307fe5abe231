package ahrsweb

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/LuisKopp/RaspberryPilot/ahrs"
	"github.com/gorilla/websocket"
)

// DefaultURL is the room served by ahrsweb_server on this machine.
var DefaultURL = url.URL{Scheme: "ws", Host: fmt.Sprintf("localhost:%d", Port), Path: "/ahrsweb"}

// Listener publishes filter snapshots to a room.
type Listener struct {
	url  string
	data *AHRSData
	c    *websocket.Conn

	// MinInterval throttles Send: snapshots closer together in filter time are dropped.
	MinInterval time.Duration
	last        time.Duration
	sent        bool
}

// NewListener connects to the room at u, e.g. DefaultURL.String().
func NewListener(u string) (l *Listener, err error) {
	l = &Listener{url: u, data: new(AHRSData)}
	if err = l.connect(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Listener) connect() (err error) {
	l.c, _, err = websocket.DefaultDialer.Dial(l.url, nil)
	return
}

// Send publishes the state of f after processing s.
// If the write fails the message is dropped and the connection is redialed;
// only a failed redial is reported.
func (l *Listener) Send(f *ahrs.Filter, s ahrs.Sample) error {
	t := f.State().T
	if l.sent && l.MinInterval > 0 && t-l.last < l.MinInterval {
		return nil
	}
	l.data.update(f, s)

	msg, err := json.Marshal(l.data)
	if err != nil {
		log.Println("AHRSWeb: Error marshalling json data:", err)
		log.Println("AHRSWeb: Data was:", l.data)
		return err
	}
	if l.c == nil {
		if err := l.connect(); err != nil {
			return fmt.Errorf("AHRSWeb: not connected: %w", err)
		}
	}
	if err := l.c.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("AHRSWeb: Error writing to websocket:", err)
		l.c.Close()
		l.c = nil
		if err2 := l.connect(); err2 != nil {
			return fmt.Errorf("AHRSWeb: %w (reconnect: %v)", err, err2)
		}
		log.Println("AHRSWeb: Reconnected, this snapshot was dropped")
		return nil
	}
	l.last, l.sent = t, true
	return nil
}

func (l *Listener) Close() {
	if l.c == nil {
		return
	}
	if err := l.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		log.Println("AHRSWeb: Error closing websocket:", err)
	}
	l.c.Close()
	l.c = nil
}
