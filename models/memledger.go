package models

import (
	"context"
	"sync"
)

// MemoryLedger keeps wallets in a map. It backs the service when no
// MONGODB_URI is configured and stands in for mongo in tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int64)}
}

func (l *MemoryLedger) Balance(ctx context.Context, account string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *MemoryLedger) Deposit(ctx context.Context, account string, amount int64) error {
	if amount <= 0 {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrAmountNotPositive
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
