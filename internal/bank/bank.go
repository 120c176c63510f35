// Package bank implements the shared ledger that workers and spenders mutate.
package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"banksim/internal/core"
)

var (
	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Bank is a balance shared by many actors. All mutations are serialized
// by mu and each one emits exactly one event while the lock is held, so
// the event log for a single bank is in mutation order.
type Bank struct {
	id       string
	name     string
	reporter core.Reporter

	mu        sync.RWMutex
	balance   decimal.Decimal
	succeeded int64
	failed    int64
}

// New creates a bank holding initial. A nil reporter discards events.
func New(name string, initial decimal.Decimal, rep core.Reporter) *Bank {
	if rep == nil {
		rep = core.NullReporter
	}
	return &Bank{
		id:       uuid.NewString(),
		name:     name,
		reporter: rep,
		balance:  initial,
	}
}

func (b *Bank) Name() string { return b.name }
func (b *Bank) ID() string   { return b.id }

// Deposit adds amount and returns the new balance.
func (b *Bank) Deposit(actor string, amount decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !amount.IsPositive() {
		b.failLocked(actor, core.KindDeposit, amount, ErrInvalidAmount)
		return b.balance, ErrInvalidAmount
	}
	b.balance = b.balance.Add(amount)
	b.succeeded++
	b.emitLocked(actor, core.KindDeposit, amount, true, "")
	return b.balance, nil
}

// Withdraw removes amount if the balance covers it. Otherwise the balance
// is left untouched and the returned error wraps ErrInsufficientFunds.
func (b *Bank) Withdraw(actor string, amount decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !amount.IsPositive() {
		b.failLocked(actor, core.KindWithdraw, amount, ErrInvalidAmount)
		return b.balance, ErrInvalidAmount
	}
	if b.balance.LessThan(amount) {
		err := fmt.Errorf("%s: withdraw %s from balance %s: %w", b.name, amount, b.balance, ErrInsufficientFunds)
		b.failLocked(actor, core.KindWithdraw, amount, err)
		return b.balance, err
	}
	b.balance = b.balance.Sub(amount)
	b.succeeded++
	b.emitLocked(actor, core.KindWithdraw, amount, true, "")
	return b.balance, nil
}

// Balance returns the current balance.
func (b *Bank) Balance() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balance
}

// Snapshot returns the balance and operation counts read under one lock.
func (b *Bank) Snapshot() core.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return core.Snapshot{
		Name:      b.name,
		Role:      "bank",
		Amount:    b.balance,
		Succeeded: b.succeeded,
		Failed:    b.failed,
	}
}

func (b *Bank) failLocked(actor string, kind core.Kind, amount decimal.Decimal, err error) {
	b.failed++
	b.emitLocked(actor, kind, amount, false, err.Error())
}

func (b *Bank) emitLocked(actor string, kind core.Kind, amount decimal.Decimal, ok bool, errMsg string) {
	b.reporter.Report(core.Event{
		Actor:   actor,
		Bank:    b.name,
		Kind:    kind,
		Amount:  amount,
		Balance: b.balance,
		Success: ok,
		Error:   errMsg,
	})
}
