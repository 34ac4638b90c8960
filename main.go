package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"pot-luck/controllers"
	"pot-luck/db"
	"pot-luck/models"
	"pot-luck/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	cfg := models.RaffleConfig{
		EntranceFee:      envInt64("ENTRANCE_FEE", 100),
		Interval:         envDuration("RAFFLE_INTERVAL", 10*time.Minute),
		PotAccount:       os.Getenv("POT_ACCOUNT"),
		KeyHash:          os.Getenv("VRF_KEY_HASH"),
		SubscriptionID:   uint64(envInt64("VRF_SUBSCRIPTION_ID", 0)),
		Confirmations:    uint16(envInt64("VRF_CONFIRMATIONS", 3)),
		CallbackGasLimit: uint32(envInt64("VRF_CALLBACK_GAS_LIMIT", 500000)),
		NumWords:         uint32(envInt64("VRF_NUM_WORDS", 1)),
	}

	// Ledger: mongo when configured, in-memory otherwise.
	var ledger models.Ledger
	if os.Getenv("MONGODB_URI") != "" {
		db.ConnectDB()
		ledger = db.NewMongoLedger(db.Client, db.GetDB())
	} else {
		log.Println("MONGODB_URI not set, using in-memory ledger")
		ledger = models.NewMemoryLedger()
	}

	hub := models.NewHub()
	go hub.Run()

	// Coordinator: remote service when configured, local simulator otherwise.
	var coordinator controllers.VRFCoordinator
	var local *controllers.LocalCoordinator
	if url := os.Getenv("COORDINATOR_URL"); url != "" {
		coordinator = controllers.NewHTTPCoordinator(url, os.Getenv("ORACLE_TOKEN"))
	} else {
		log.Println("COORDINATOR_URL not set, using local coordinator")
		local = controllers.NewLocalCoordinator(envDuration("COORDINATOR_DELAY", 3*time.Second))
		coordinator = local
	}

	manager, err := controllers.NewRaffleManager(cfg, ledger, coordinator, hub)
	if err != nil {
		log.Fatal("raffle config: ", err)
	}
	controllers.CurrentRaffle = manager
	if local != nil {
		local.Fulfill = manager.FulfillRandomWords
	}

	raffleController := controllers.NewRaffleController(manager, os.Getenv("ORACLE_TOKEN"))
	walletController := controllers.NewWalletController(ledger)

	r := gin.Default()
	routes.WebSocketRoutes(r, hub)
	routes.RaffleRoutes(r, raffleController)
	routes.WalletRoutes(r, walletController)

	if os.Getenv("KEEPER_ENABLED") == "true" {
		keeper := controllers.NewKeeper(manager, envDuration("KEEPER_POLL", 5*time.Second))
		go keeper.Run()
		log.Println("Keeper polling every", keeper.Poll)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	log.Println("Server running on port", port)
	r.Run(":" + port)
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return v
}
