// controllers/raffleController.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"pot-luck/models"

	"github.com/gin-gonic/gin"
)

// RaffleController handles HTTP requests for the raffle.
type RaffleController struct {
	Manager     *RaffleManager
	OracleToken string
}

func NewRaffleController(rm *RaffleManager, oracleToken string) *RaffleController {
	return &RaffleController{
		Manager:     rm,
		OracleToken: oracleToken,
	}
}

type enterRequest struct {
	Player string `json:"player" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// Enter lets a player join the current round.
func (rc *RaffleController) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry data: " + err.Error()})
		return
	}

	err := rc.Manager.Enter(c.Request.Context(), req.Player, req.Amount)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": "Entered the raffle.",
			"player":  req.Player,
			"players": rc.Manager.PlayerCount(),
		})
	case errors.Is(err, models.ErrEntryTooLow):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"fee":   rc.Manager.EntranceFee(),
		})
	case errors.Is(err, models.ErrRaffleNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInsufficientFunds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetRaffle returns the current round snapshot.
func (rc *RaffleController) GetRaffle(c *gin.Context) {
	c.JSON(http.StatusOK, rc.Manager.Snapshot(c.Request.Context()))
}

// GetPlayer returns the player at an index in join order.
func (rc *RaffleController) GetPlayer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid index parameter is required."})
		return
	}
	player, err := rc.Manager.Player(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": index, "player": player})
}

// CheckUpkeep is the read-only poll target for automation.
func (rc *RaffleController) CheckUpkeep(c *gin.Context) {
	needed, performData, err := rc.Manager.CheckUpkeep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upkeepNeeded": needed,
		"performData":  performData,
	})
}

// PerformUpkeep closes the round and requests randomness. Permissionless:
// the manager re-checks the condition, so a stray call cannot hurt.
func (rc *RaffleController) PerformUpkeep(c *gin.Context) {
	reqID, err := rc.Manager.PerformUpkeep(c.Request.Context())
	if err != nil {
		var notNeeded *models.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   notNeeded.Error(),
				"balance": notNeeded.Balance,
				"players": notNeeded.PlayerCount,
				"state":   notNeeded.State,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":    "Winner selection requested.",
		"request_id": reqID,
	})
}

type fulfillRequest struct {
	RequestID   string   `json:"request_id" binding:"required"`
	RandomWords []uint64 `json:"random_words" binding:"required"`
}

// Fulfill is the coordinator callback. Only the configured oracle may call
// it; everyone else is rejected before any state is touched.
func (rc *RaffleController) Fulfill(c *gin.Context) {
	if rc.OracleToken == "" || c.GetHeader("X-Oracle-Token") != rc.OracleToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid oracle token."})
		return
	}

	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fulfillment data: " + err.Error()})
		return
	}

	winner, err := rc.Manager.FulfillRandomWords(c.Request.Context(), req.RequestID, req.RandomWords)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"message": "Winner selected.",
			"winner":  winner,
		})
	case errors.Is(err, models.ErrNoPendingRequest), errors.Is(err, models.ErrUnknownRequest):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNoRandomWords):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		// Payout failure: the winner is committed and the round reopened, so
		// report both the winner and the error.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"winner": winner,
		})
	}
}
