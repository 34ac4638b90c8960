package controllers

import (
	"testing"
	"time"

	"pot-luck/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeeperClosesRound(t *testing.T) {
	rm, ledger, coord := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice", "bob")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)

	keeper := NewKeeper(rm, 5*time.Millisecond)
	go keeper.Run()
	defer keeper.Stop()

	require.Eventually(t, func() bool {
		return rm.State() == models.RaffleCalculating
	}, time.Second, 5*time.Millisecond, "keeper should trigger the close")

	assert.Equal(t, 1, coord.requestCount())
	assert.NotEmpty(t, rm.PendingRequestID())
}

func TestKeeperIdlesWhenNotNeeded(t *testing.T) {
	rm, ledger, coord := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")
	// Interval has not elapsed, so the keeper has nothing to do.

	keeper := NewKeeper(rm, time.Millisecond)
	go keeper.Run()
	time.Sleep(20 * time.Millisecond)
	keeper.Stop()

	assert.Equal(t, models.RaffleOpen, rm.State())
	assert.Equal(t, 0, coord.requestCount())
}
