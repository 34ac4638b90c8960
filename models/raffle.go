package models

import (
	"errors"
	"fmt"
	"time"
)

// RaffleState is the round lifecycle flag. The raffle is either accepting
// entries (open) or waiting on an outstanding randomness request (calculating).
type RaffleState string

const (
	RaffleOpen        RaffleState = "open"
	RaffleCalculating RaffleState = "calculating"
)

// RaffleConfig holds the round parameters. All fields are fixed at startup;
// nothing mutates them afterwards.
type RaffleConfig struct {
	EntranceFee int64         `json:"entranceFee"` // credits, > 0
	Interval    time.Duration `json:"interval"`    // minimum time between round closes, > 0
	PotAccount  string        `json:"potAccount"`  // ledger account holding the pooled fees

	// Randomness coordinator request parameters, passed through verbatim.
	KeyHash          string `json:"keyHash"`
	SubscriptionID   uint64 `json:"subscriptionId"`
	Confirmations    uint16 `json:"confirmations"`
	CallbackGasLimit uint32 `json:"callbackGasLimit"`
	NumWords         uint32 `json:"numWords"`
}

// VRFRequest is the payload sent to the randomness coordinator when a round
// closes. The coordinator answers with a request id and later calls the
// fulfillment endpoint with that id and the random words.
type VRFRequest struct {
	KeyHash          string `json:"keyHash"`
	SubscriptionID   uint64 `json:"subscriptionId"`
	Confirmations    uint16 `json:"confirmations"`
	CallbackGasLimit uint32 `json:"callbackGasLimit"`
	NumWords         uint32 `json:"numWords"`
}

var (
	ErrEntryTooLow      = errors.New("entry amount below entrance fee")
	ErrRaffleNotOpen    = errors.New("raffle is not open")
	ErrNoPendingRequest = errors.New("no randomness request pending")
	ErrUnknownRequest   = errors.New("unknown randomness request id")
	ErrNoRandomWords    = errors.New("fulfillment carried no random words")
)

// UpkeepNotNeededError reports why PerformUpkeep refused to close the round.
// It carries the snapshot that failed the condition so keeper logs are useful.
type UpkeepNotNeededError struct {
	Balance     int64
	PlayerCount int
	State       RaffleState
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: balance=%d players=%d state=%s",
		e.Balance, e.PlayerCount, e.State)
}

// PayoutError means the winner was already committed but moving the pot to
// them failed. The round has reopened; the pot stays in the pot wallet.
type PayoutError struct {
	Winner string
	Amount int64
	Err    error
}

func (e *PayoutError) Error() string {
	return fmt.Sprintf("payout of %d to %s failed: %v", e.Amount, e.Winner, e.Err)
}

func (e *PayoutError) Unwrap() error { return e.Err }
