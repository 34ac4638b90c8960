package controllers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pot-luck/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCoordinator struct {
	mu       sync.Mutex
	requests []models.VRFRequest
	nextID   string
	err      error
}

func (s *stubCoordinator) RequestRandomWords(ctx context.Context, req models.VRFRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.requests = append(s.requests, req)
	if s.nextID == "" {
		return "req-1", nil
	}
	return s.nextID, nil
}

func (s *stubCoordinator) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// failingLedger passes everything through except transfers out of the pot.
type failingLedger struct {
	models.Ledger
	pot string
}

func (l *failingLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if from == l.pot {
		return errors.New("wallet store unavailable")
	}
	return l.Ledger.Transfer(ctx, from, to, amount)
}

func newTestRaffle(t *testing.T, fee int64, interval time.Duration) (*RaffleManager, *models.MemoryLedger, *stubCoordinator) {
	t.Helper()
	ledger := models.NewMemoryLedger()
	coord := &stubCoordinator{}
	rm, err := NewRaffleManager(models.RaffleConfig{
		EntranceFee: fee,
		Interval:    interval,
	}, ledger, coord, models.NewHub())
	require.NoError(t, err)
	return rm, ledger, coord
}

func fundAndEnter(t *testing.T, rm *RaffleManager, ledger models.Ledger, players ...string) {
	t.Helper()
	ctx := context.Background()
	for _, p := range players {
		require.NoError(t, ledger.Deposit(ctx, p, rm.EntranceFee()))
		require.NoError(t, rm.Enter(ctx, p, rm.EntranceFee()))
	}
}

func TestNewRaffleManagerValidatesConfig(t *testing.T) {
	ledger := models.NewMemoryLedger()
	_, err := NewRaffleManager(models.RaffleConfig{EntranceFee: 0, Interval: time.Second}, ledger, &stubCoordinator{}, models.NewHub())
	assert.Error(t, err)

	_, err = NewRaffleManager(models.RaffleConfig{EntranceFee: 1, Interval: 0}, ledger, &stubCoordinator{}, models.NewHub())
	assert.Error(t, err)
}

func TestEnterAppendsPlayersInOrder(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice", "bob", "carol")

	assert.Equal(t, 3, rm.PlayerCount())
	assert.Equal(t, []string{"alice", "bob", "carol"}, rm.Players())
	for i, want := range []string{"alice", "bob", "carol"} {
		got, err := rm.Player(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	pot, err := rm.PotBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(300), pot)
}

func TestEnterKeepsOverpayment(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	ctx := context.Background()
	require.NoError(t, ledger.Deposit(ctx, "alice", 250))
	require.NoError(t, rm.Enter(ctx, "alice", 150))

	pot, err := rm.PotBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(150), pot, "excess over the fee stays in the pot")

	balance, err := ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestEnterRejectsLowPayment(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	ctx := context.Background()
	require.NoError(t, ledger.Deposit(ctx, "alice", 1000))

	err := rm.Enter(ctx, "alice", 99)
	assert.ErrorIs(t, err, models.ErrEntryTooLow)
	assert.Equal(t, 0, rm.PlayerCount())

	balance, err := ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance, "failed entry must not move funds")
}

func TestEnterRejectsInsufficientFunds(t *testing.T) {
	rm, _, _ := newTestRaffle(t, 100, time.Hour)
	err := rm.Enter(context.Background(), "alice", 100)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, 0, rm.PlayerCount())
}

func TestEnterRejectsWhileCalculating(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice", "bob")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)

	ctx := context.Background()
	_, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)

	require.NoError(t, ledger.Deposit(ctx, "late", 100))
	err = rm.Enter(ctx, "late", 100)
	assert.ErrorIs(t, err, models.ErrRaffleNotOpen)
	assert.Equal(t, 2, rm.PlayerCount(), "late entrant cannot join the pending draw")
}

func TestCheckUpkeep(t *testing.T) {
	ctx := context.Background()

	t.Run("false before interval elapses", func(t *testing.T) {
		rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
		fundAndEnter(t, rm, ledger, "alice")
		needed, _, err := rm.CheckUpkeep(ctx)
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("false with no players", func(t *testing.T) {
		rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
		rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
		require.NoError(t, ledger.Deposit(ctx, rm.Config.PotAccount, 500))
		needed, _, err := rm.CheckUpkeep(ctx)
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("false with empty pot", func(t *testing.T) {
		rm, _, _ := newTestRaffle(t, 100, time.Hour)
		rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
		needed, _, err := rm.CheckUpkeep(ctx)
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("false while calculating", func(t *testing.T) {
		rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
		fundAndEnter(t, rm, ledger, "alice")
		rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
		_, err := rm.PerformUpkeep(ctx)
		require.NoError(t, err)
		needed, _, err := rm.CheckUpkeep(ctx)
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("true when all conditions hold", func(t *testing.T) {
		rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
		fundAndEnter(t, rm, ledger, "alice")
		rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
		needed, _, err := rm.CheckUpkeep(ctx)
		require.NoError(t, err)
		assert.True(t, needed)
	})
}

func TestPerformUpkeepIssuesSingleRequest(t *testing.T) {
	rm, ledger, coord := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice", "bob")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
	ctx := context.Background()

	reqID, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req-1", reqID)
	assert.Equal(t, models.RaffleCalculating, rm.State())
	assert.Equal(t, "req-1", rm.PendingRequestID())
	assert.Equal(t, 1, coord.requestCount())

	// Second call must fail fast on the flipped state and not re-request.
	_, err = rm.PerformUpkeep(ctx)
	var notNeeded *models.UpkeepNotNeededError
	require.ErrorAs(t, err, &notNeeded)
	assert.Equal(t, models.RaffleCalculating, notNeeded.State)
	assert.Equal(t, 2, notNeeded.PlayerCount)
	assert.Equal(t, 1, coord.requestCount())
}

func TestPerformUpkeepNotNeededDiagnostics(t *testing.T) {
	rm, _, coord := newTestRaffle(t, 100, time.Hour)
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)

	_, err := rm.PerformUpkeep(context.Background())
	var notNeeded *models.UpkeepNotNeededError
	require.ErrorAs(t, err, &notNeeded)
	assert.Equal(t, int64(0), notNeeded.Balance)
	assert.Equal(t, 0, notNeeded.PlayerCount)
	assert.Equal(t, models.RaffleOpen, notNeeded.State)
	assert.Equal(t, 0, coord.requestCount())
}

func TestPerformUpkeepReopensOnCoordinatorFailure(t *testing.T) {
	rm, ledger, coord := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
	coord.err = errors.New("coordinator down")

	_, err := rm.PerformUpkeep(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.RaffleOpen, rm.State())
	assert.Empty(t, rm.PendingRequestID())

	// The round is still triggerable once the coordinator recovers.
	coord.err = nil
	_, err = rm.PerformUpkeep(context.Background())
	require.NoError(t, err)
}

func TestFulfillSelectsModuloWinner(t *testing.T) {
	// fee=1, interval=10s, three players, random word 7: 7 mod 3 = 1, so the
	// second entrant wins the pot of 3.
	rm, ledger, _ := newTestRaffle(t, 1, 10*time.Second)
	fundAndEnter(t, rm, ledger, "alice", "bob", "carol")
	rm.lastCloseTime = time.Now().Add(-11 * time.Second)
	ctx := context.Background()

	needed, _, err := rm.CheckUpkeep(ctx)
	require.NoError(t, err)
	require.True(t, needed)

	reqID, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)

	before := rm.LastCloseTime()
	winner, err := rm.FulfillRandomWords(ctx, reqID, []uint64{7})
	require.NoError(t, err)
	assert.Equal(t, "bob", winner)
	assert.Equal(t, "bob", rm.RecentWinner())
	assert.Equal(t, models.RaffleOpen, rm.State())
	assert.Equal(t, 0, rm.PlayerCount())
	assert.Empty(t, rm.PendingRequestID())
	assert.True(t, rm.LastCloseTime().After(before))

	balance, err := ledger.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	pot, err := rm.PotBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pot)
}

func TestFulfillRejectsWhenNoRequestPending(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")

	_, err := rm.FulfillRandomWords(context.Background(), "req-1", []uint64{42})
	assert.ErrorIs(t, err, models.ErrNoPendingRequest)
	assert.Equal(t, 1, rm.PlayerCount(), "spurious fulfillment must not touch state")
}

func TestFulfillRejectsUnknownRequestID(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
	ctx := context.Background()

	_, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)

	_, err = rm.FulfillRandomWords(ctx, "req-stale", []uint64{42})
	assert.ErrorIs(t, err, models.ErrUnknownRequest)
	assert.Equal(t, models.RaffleCalculating, rm.State(), "round still waits for the real fulfillment")
}

func TestFulfillRejectsEmptyWords(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
	ctx := context.Background()

	reqID, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)

	_, err = rm.FulfillRandomWords(ctx, reqID, nil)
	assert.ErrorIs(t, err, models.ErrNoRandomWords)
	assert.Equal(t, models.RaffleCalculating, rm.State())
}

func TestFulfillPayoutFailureKeepsCommittedState(t *testing.T) {
	ledger := models.NewMemoryLedger()
	coord := &stubCoordinator{}
	rm, err := NewRaffleManager(models.RaffleConfig{
		EntranceFee: 100,
		Interval:    time.Hour,
	}, ledger, coord, models.NewHub())
	require.NoError(t, err)
	rm.Ledger = &failingLedger{Ledger: ledger, pot: rm.Config.PotAccount}

	fundAndEnter(t, rm, ledger, "alice", "bob")
	rm.lastCloseTime = time.Now().Add(-2 * time.Hour)
	ctx := context.Background()

	reqID, err := rm.PerformUpkeep(ctx)
	require.NoError(t, err)

	winner, err := rm.FulfillRandomWords(ctx, reqID, []uint64{4})
	var payout *models.PayoutError
	require.ErrorAs(t, err, &payout)
	assert.Equal(t, "alice", winner)
	assert.Equal(t, "alice", payout.Winner)
	assert.Equal(t, int64(200), payout.Amount)

	// The round already reopened; the pot stays put and rolls over.
	assert.Equal(t, models.RaffleOpen, rm.State())
	assert.Equal(t, 0, rm.PlayerCount())
	assert.Equal(t, "alice", rm.RecentWinner())
	pot, err := rm.PotBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), pot)
}

func TestReadAccessorsAreIdempotent(t *testing.T) {
	rm, ledger, _ := newTestRaffle(t, 100, time.Hour)
	fundAndEnter(t, rm, ledger, "alice")

	for i := 0; i < 3; i++ {
		assert.Equal(t, int64(100), rm.EntranceFee())
		assert.Equal(t, time.Hour, rm.Interval())
		assert.Equal(t, models.RaffleOpen, rm.State())
		assert.Equal(t, 1, rm.PlayerCount())
		assert.Empty(t, rm.RecentWinner())
	}

	_, err := rm.Player(5)
	assert.Error(t, err)
	_, err = rm.Player(-1)
	assert.Error(t, err)
}
