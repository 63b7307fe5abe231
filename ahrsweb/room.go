package ahrsweb

import (
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Room relays every message one client sends to all connected clients.
type Room struct {
	// forward is a channel that holds incoming messages
	// that should be forwarded to the other clients.
	forward chan []byte
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool

	done      chan struct{}
	closeOnce sync.Once
	stopped   chan struct{}
	n         atomic.Int32
}

// NewRoom makes a new room that is ready to go.
func NewRoom() *Room {
	return &Room{
		forward: make(chan []byte),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run relays messages until Close is called.
func (r *Room) Run() {
	defer close(r.stopped)
	for {
		select {
		case client := <-r.join:
			r.clients[client] = true
			r.n.Store(int32(len(r.clients)))
			log.Println("AHRSWeb: New client joined")
		case client := <-r.leave:
			if r.clients[client] {
				delete(r.clients, client)
				close(client.send)
			}
			r.n.Store(int32(len(r.clients)))
			log.Println("AHRSWeb: Client left")
		case msg := <-r.forward:
			for client := range r.clients {
				select {
				case client.send <- msg:
				default:
					log.Println("AHRSWeb: client is too slow, dropping a message")
				}
			}
		case <-r.done:
			for client := range r.clients {
				delete(r.clients, client)
				close(client.send)
			}
			r.n.Store(0)
			return
		}
	}
}

// Publish sends msg to every client, as if a client had sent it.
// It returns false if the room is closed.
func (r *Room) Publish(msg []byte) bool {
	select {
	case r.forward <- msg:
		return true
	case <-r.done:
		return false
	}
}

// Clients returns the number of connected clients.
func (r *Room) Clients() int {
	return int(r.n.Load())
}

// Close disconnects all clients and waits for Run to return.
// Run must have been started.
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.done) })
	<-r.stopped
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Println("AHRSWeb: ServeHTTP:", err)
		return
	}
	client := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- client:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- client:
		case <-r.done:
		}
	}()
	go client.write()
	client.read()
}
