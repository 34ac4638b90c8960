package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pot-luck/controllers"
	"pot-luck/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for simplicity; adjust in production
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs handles WebSocket requests from clients
func ServeWs(h *models.Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}

	client := &models.Client{Conn: conn, Send: make(chan models.WSMessage, 256)}
	h.Register <- client

	go client.WritePump()
	go client.ReadPump(h)

	// Send the current raffle state to the newly connected client.
	go func() {
		rm := controllers.CurrentRaffle
		if rm == nil {
			client.Send <- models.WSMessage{Event: "raffle_state", Data: nil}
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Send <- models.WSMessage{Event: "raffle_state", Data: rm.Snapshot(ctx)}
	}()
}
