package routes

import (
	"pot-luck/models"
	"pot-luck/websocket"

	"github.com/gin-gonic/gin"
)

func WebSocketRoutes(r *gin.Engine, hub *models.Hub) {
	r.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(hub, c.Writer, c.Request)
	})
}
