package routes

import (
	"pot-luck/controllers"

	"github.com/gin-gonic/gin"
)

func WalletRoutes(r *gin.Engine, wc *controllers.WalletController) {
	r.POST("/api/wallets/deposit", wc.Deposit)
	r.GET("/api/wallets/:account", wc.GetWallet)
}
