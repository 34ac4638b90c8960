// controllers/keeper.go
package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"pot-luck/models"
)

// Keeper is the in-process automation trigger: it polls CheckUpkeep on a
// fixed cadence and calls PerformUpkeep when the condition holds. An external
// poller hitting the upkeep endpoints works just as well; losing the race to
// one is not an error.
type Keeper struct {
	Manager *RaffleManager
	Poll    time.Duration
	stop    chan struct{}
}

func NewKeeper(rm *RaffleManager, poll time.Duration) *Keeper {
	return &Keeper{
		Manager: rm,
		Poll:    poll,
		stop:    make(chan struct{}),
	}
}

// Run loops until Stop. Intended as a goroutine from main.
func (k *Keeper) Run() {
	ticker := time.NewTicker(k.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.tick()
		case <-k.stop:
			return
		}
	}
}

func (k *Keeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	needed, _, err := k.Manager.CheckUpkeep(ctx)
	if err != nil {
		log.Println("keeper check failed:", err)
		return
	}
	if !needed {
		return
	}

	reqID, err := k.Manager.PerformUpkeep(ctx)
	if err != nil {
		var notNeeded *models.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			// Someone else closed the round between check and perform.
			return
		}
		log.Println("keeper perform failed:", err)
		return
	}
	log.Println("keeper closed the round, request", reqID)
}

func (k *Keeper) Stop() {
	close(k.stop)
}
