package routes

import (
	"pot-luck/controllers"

	"github.com/gin-gonic/gin"
)

func RaffleRoutes(r *gin.Engine, rc *controllers.RaffleController) {
	r.GET("/api/raffle", rc.GetRaffle)
	r.POST("/api/raffle/entries", rc.Enter)
	r.GET("/api/raffle/players/:index", rc.GetPlayer)
	r.GET("/api/raffle/upkeep", rc.CheckUpkeep)
	r.POST("/api/raffle/upkeep", rc.PerformUpkeep)
	r.POST("/api/vrf/fulfillments", rc.Fulfill)
}
