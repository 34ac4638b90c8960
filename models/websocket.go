package models

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type Client struct {
	Conn *websocket.Conn
	Send chan WSMessage
}

// Hub fans raffle events out to every connected websocket client.
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	Mutex      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan WSMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Emit queues an event for broadcast without blocking the caller. Events are
// best-effort observer notifications; if the hub backlog is full they drop.
func (h *Hub) Emit(event string, data interface{}) {
	select {
	case h.Broadcast <- WSMessage{Event: event, Data: data}:
	default:
		log.Println("hub backlog full, dropping event:", event)
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.Mutex.Lock()
			h.Clients[client] = true
			h.Mutex.Unlock()
			log.Println("Client registered")
		case client := <-h.Unregister:
			h.Mutex.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				log.Println("Client unregistered")
			}
			h.Mutex.Unlock()
		case message := <-h.Broadcast:
			h.Mutex.Lock()
			for client := range h.Clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.Clients, client)
				}
			}
			h.Mutex.Unlock()
		}
	}
}

// ReadPump drains incoming messages from a client; the raffle only pushes
// events, so inbound payloads are discarded.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.Unregister <- c
		c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
	}
}

// WritePump sends messages from the Send channel to the WebSocket connection
func (c *Client) WritePump() {
	defer func() {
		c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteJSON(message); err != nil {
			log.Println("Write error:", err)
			break
		}
	}
}
