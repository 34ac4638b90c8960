package models

import (
	"context"
	"errors"
)

// Wallet is a ledger account. Balances are integer credits; no floats for
// money.
type Wallet struct {
	Account string `json:"account" bson:"account"`
	Balance int64  `json:"balance" bson:"balance"`
}

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAmountNotPositive = errors.New("amount must be positive")
)

// Ledger is where the credits live. The raffle core never tracks balances
// itself; the pot is just the pot account's balance here. Accounts that were
// never funded read as zero.
type Ledger interface {
	Balance(ctx context.Context, account string) (int64, error)
	Deposit(ctx context.Context, account string, amount int64) error
	Transfer(ctx context.Context, from, to string, amount int64) error
}
