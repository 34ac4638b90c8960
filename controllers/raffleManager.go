// controllers/raffleManager.go
package controllers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pot-luck/models"

	"github.com/gin-gonic/gin"
)

// VRFCoordinator is the randomness collaborator. PerformUpkeep sends it one
// request per round close; it later hits the fulfillment endpoint with the
// returned id and the random words.
type VRFCoordinator interface {
	RequestRandomWords(ctx context.Context, req models.VRFRequest) (string, error)
}

// RaffleManager owns the round state machine. A single mutex guards every
// operation, so no call can interleave with another mid-mutation; that mutex
// is the whole reentrancy story.
type RaffleManager struct {
	Hub         *models.Hub
	Ledger      models.Ledger
	Coordinator VRFCoordinator
	Config      models.RaffleConfig

	mu               sync.Mutex
	state            models.RaffleState
	players          []string
	lastCloseTime    time.Time
	recentWinner     string
	pendingRequestID string
}

// NewRaffleManager creates the manager with a fresh open round. Fee and
// interval must be positive; they cannot change after this.
func NewRaffleManager(cfg models.RaffleConfig, ledger models.Ledger, coord VRFCoordinator, hub *models.Hub) (*RaffleManager, error) {
	if cfg.EntranceFee <= 0 {
		return nil, fmt.Errorf("entrance fee must be positive, got %d", cfg.EntranceFee)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}
	if cfg.PotAccount == "" {
		cfg.PotAccount = "raffle:pot"
	}
	if cfg.NumWords == 0 {
		cfg.NumWords = 1
	}
	return &RaffleManager{
		Hub:           hub,
		Ledger:        ledger,
		Coordinator:   coord,
		Config:        cfg,
		state:         models.RaffleOpen,
		lastCloseTime: time.Now(),
	}, nil
}

// Enter adds a player to the current round. The full amount moves to the pot
// wallet; anything above the fee is kept, not refunded.
func (rm *RaffleManager) Enter(ctx context.Context, player string, amount int64) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if player == "" {
		return fmt.Errorf("player must not be empty")
	}
	if amount < rm.Config.EntranceFee {
		return models.ErrEntryTooLow
	}
	if rm.state != models.RaffleOpen {
		return models.ErrRaffleNotOpen
	}
	if err := rm.Ledger.Transfer(ctx, player, rm.Config.PotAccount, amount); err != nil {
		return err
	}
	rm.players = append(rm.players, player)

	rm.Hub.Emit("raffle_entered", gin.H{
		"player":  player,
		"players": len(rm.players),
	})
	return nil
}

// CheckUpkeep reports whether the round is ready to close. The second return
// is opaque perform data, always empty for now; pollers pass it back as-is.
func (rm *RaffleManager) CheckUpkeep(ctx context.Context) (bool, []byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	needed, _, err := rm.upkeepNeeded(ctx)
	return needed, nil, err
}

// upkeepNeeded is the one place the close condition lives. Callers hold rm.mu.
func (rm *RaffleManager) upkeepNeeded(ctx context.Context) (bool, int64, error) {
	pot, err := rm.Ledger.Balance(ctx, rm.Config.PotAccount)
	if err != nil {
		return false, 0, fmt.Errorf("pot balance: %w", err)
	}
	intervalPassed := time.Since(rm.lastCloseTime) >= rm.Config.Interval
	isOpen := rm.state == models.RaffleOpen
	needed := intervalPassed && isOpen && pot > 0 && len(rm.players) > 0
	return needed, pot, nil
}

// PerformUpkeep closes the round: it re-checks the condition itself (never
// trusting the poller), flips the state to calculating and issues exactly one
// randomness request. Concurrent callers race on the state flip; the loser
// gets UpkeepNotNeededError.
func (rm *RaffleManager) PerformUpkeep(ctx context.Context) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	needed, pot, err := rm.upkeepNeeded(ctx)
	if err != nil {
		return "", err
	}
	if !needed {
		return "", &models.UpkeepNotNeededError{
			Balance:     pot,
			PlayerCount: len(rm.players),
			State:       rm.state,
		}
	}

	rm.state = models.RaffleCalculating
	reqID, err := rm.Coordinator.RequestRandomWords(ctx, models.VRFRequest{
		KeyHash:          rm.Config.KeyHash,
		SubscriptionID:   rm.Config.SubscriptionID,
		Confirmations:    rm.Config.Confirmations,
		CallbackGasLimit: rm.Config.CallbackGasLimit,
		NumWords:         rm.Config.NumWords,
	})
	if err != nil {
		// No request went out, so the round reopens as if this call never
		// happened.
		rm.state = models.RaffleOpen
		return "", fmt.Errorf("request random words: %w", err)
	}
	rm.pendingRequestID = reqID

	log.Printf("raffle closing: request %s issued for %d players, pot %d", reqID, len(rm.players), pot)
	rm.Hub.Emit("winner_requested", gin.H{"request_id": reqID})
	return reqID, nil
}

// FulfillRandomWords completes the round with the coordinator's random words.
// Caller authentication happens at the HTTP layer; here we only enforce that
// a matching request is actually outstanding.
//
// Every state mutation is committed before the payout transfer is attempted,
// so anything the transfer triggers observes an already-reset round: open,
// no players, no pending request. If the transfer fails the round stays
// reset and the pot simply remains in the pot wallet for the next round.
func (rm *RaffleManager) FulfillRandomWords(ctx context.Context, requestID string, words []uint64) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.state != models.RaffleCalculating {
		return "", models.ErrNoPendingRequest
	}
	if requestID != rm.pendingRequestID {
		return "", models.ErrUnknownRequest
	}
	if len(words) == 0 {
		return "", models.ErrNoRandomWords
	}

	idx := words[0] % uint64(len(rm.players))
	winner := rm.players[idx]

	rm.recentWinner = winner
	rm.state = models.RaffleOpen
	rm.players = nil
	rm.lastCloseTime = time.Now()
	rm.pendingRequestID = ""

	rm.Hub.Emit("winner_picked", gin.H{"winner": winner})

	pot, err := rm.Ledger.Balance(ctx, rm.Config.PotAccount)
	if err != nil {
		return winner, &models.PayoutError{Winner: winner, Err: err}
	}
	if err := rm.Ledger.Transfer(ctx, rm.Config.PotAccount, winner, pot); err != nil {
		log.Printf("payout of %d to %s failed, pot rolls over: %v", pot, winner, err)
		return winner, &models.PayoutError{Winner: winner, Amount: pot, Err: err}
	}

	log.Printf("raffle won: %s takes %d", winner, pot)
	rm.Hub.Emit("pot_paid", gin.H{"winner": winner, "amount": pot})
	return winner, nil
}

// Read accessors. All take the mutex so they never observe a half-applied
// transition.

func (rm *RaffleManager) State() models.RaffleState {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state
}

func (rm *RaffleManager) EntranceFee() int64 { return rm.Config.EntranceFee }

func (rm *RaffleManager) Interval() time.Duration { return rm.Config.Interval }

func (rm *RaffleManager) Player(index int) (string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if index < 0 || index >= len(rm.players) {
		return "", fmt.Errorf("player index %d out of range [0,%d)", index, len(rm.players))
	}
	return rm.players[index], nil
}

func (rm *RaffleManager) PlayerCount() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.players)
}

func (rm *RaffleManager) Players() []string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	out := make([]string, len(rm.players))
	copy(out, rm.players)
	return out
}

func (rm *RaffleManager) RecentWinner() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.recentWinner
}

func (rm *RaffleManager) LastCloseTime() time.Time {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.lastCloseTime
}

func (rm *RaffleManager) PendingRequestID() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.pendingRequestID
}

func (rm *RaffleManager) PotBalance(ctx context.Context) (int64, error) {
	return rm.Ledger.Balance(ctx, rm.Config.PotAccount)
}

// Snapshot returns the observer view of the round, used by the HTTP status
// endpoint and the websocket hello message.
func (rm *RaffleManager) Snapshot(ctx context.Context) gin.H {
	pot, err := rm.PotBalance(ctx)
	if err != nil {
		log.Println("snapshot pot balance:", err)
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return gin.H{
		"state":            rm.state,
		"entranceFee":      rm.Config.EntranceFee,
		"interval":         rm.Config.Interval.String(),
		"players":          len(rm.players),
		"recentWinner":     rm.recentWinner,
		"lastCloseTime":    rm.lastCloseTime.UTC(),
		"pot":              pot,
		"pendingRequestId": rm.pendingRequestID,
	}
}

// Global instance wired in main, read by the websocket hello path.
var CurrentRaffle *RaffleManager
