// controllers/walletController.go
package controllers

import (
	"errors"
	"net/http"

	"pot-luck/models"

	"github.com/gin-gonic/gin"
)

// WalletController handles wallet funding and balance reads.
type WalletController struct {
	Ledger models.Ledger
}

func NewWalletController(ledger models.Ledger) *WalletController {
	return &WalletController{Ledger: ledger}
}

type depositRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  int64  `json:"amount" binding:"required"`
}

// Deposit credits a wallet so the player can afford the entrance fee.
func (wc *WalletController) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deposit data: " + err.Error()})
		return
	}

	if err := wc.Ledger.Deposit(c.Request.Context(), req.Account, req.Amount); err != nil {
		if errors.Is(err, models.ErrAmountNotPositive) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	balance, err := wc.Ledger.Balance(c.Request.Context(), req.Account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": req.Account,
		"balance": balance,
	})
}

// GetWallet returns a wallet balance; never-funded accounts read as zero.
func (wc *WalletController) GetWallet(c *gin.Context) {
	account := c.Param("account")
	balance, err := wc.Ledger.Balance(c.Request.Context(), account)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account": account,
		"balance": balance,
	})
}
