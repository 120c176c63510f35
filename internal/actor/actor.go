// Package actor implements the workers and spenders that mutate bank
// balances from their own goroutines until their context is cancelled.
package actor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"banksim/internal/bank"
	"banksim/internal/core"
	"banksim/internal/money"
	"banksim/internal/ratelimit"
)

// Config describes one actor. Rand must not be shared with another actor.
type Config struct {
	Name     string
	Banks    []*bank.Bank
	Amounts  money.Range
	Interval time.Duration
	Policy   Policy
	Rand     *rand.Rand
	Logger   logrus.FieldLogger
}

type operation func(b *bank.Bank, actor string, amount decimal.Decimal) (decimal.Decimal, error)

// base is the loop shared by Worker and Spender.
type base struct {
	name   string
	role   string
	op     operation
	amount money.Range
	pacer  *ratelimit.Pacer
	sel    *selector
	rnd    *rand.Rand
	log    logrus.FieldLogger

	running   atomic.Bool
	succeeded atomic.Int64
	failed    atomic.Int64
	moved     atomic.Int64
}

func newBase(cfg Config, role string, op operation) (*base, error) {
	if cfg.Name == "" {
		return nil, errors.New("actor name is required")
	}
	if len(cfg.Banks) == 0 {
		return nil, fmt.Errorf("%s %s: no bank to target", role, cfg.Name)
	}
	if err := cfg.Amounts.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", role, cfg.Name, err)
	}
	policy, err := ParsePolicy(string(cfg.Policy))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", role, cfg.Name, err)
	}
	rnd := cfg.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	log := cfg.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	banks := make([]*bank.Bank, len(cfg.Banks))
	copy(banks, cfg.Banks)

	return &base{
		name:   cfg.Name,
		role:   role,
		op:     op,
		amount: cfg.Amounts,
		pacer:  ratelimit.NewPacer(cfg.Interval),
		sel:    &selector{policy: policy, banks: banks, rnd: rnd},
		rnd:    rnd,
		log:    log.WithFields(logrus.Fields{"actor": cfg.Name, "role": role}),
	}, nil
}

func (a *base) Name() string { return a.name }

// Running reports whether the actor loop is currently executing.
func (a *base) Running() bool { return a.running.Load() }

func (a *base) Snapshot() core.Snapshot {
	return core.Snapshot{
		Name:      a.name,
		Role:      a.role,
		Amount:    decimal.NewFromInt(a.moved.Load()),
		Succeeded: a.succeeded.Load(),
		Failed:    a.failed.Load(),
	}
}

// Banks returns the banks this actor may target.
func (a *base) Banks() []*bank.Bank {
	out := make([]*bank.Bank, len(a.sel.banks))
	copy(out, a.sel.banks)
	return out
}

// Run loops until ctx is cancelled. Failed operations are recorded by the
// bank as events and never end the loop.
func (a *base) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s %s is already running", a.role, a.name)
	}
	defer a.running.Store(false)

	a.log.Debug("actor started")
	defer a.log.Debug("actor stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}

		target := a.sel.pick()
		amount := a.amount.Pick(a.rnd)
		if _, err := a.op(target, a.name, amount); err != nil {
			a.failed.Add(1)
			a.log.WithFields(logrus.Fields{"bank": target.Name(), "amount": amount.String()}).
				WithError(err).Debug("operation failed")
		} else {
			a.succeeded.Add(1)
			a.moved.Add(amount.IntPart())
		}

		if err := a.pacer.Wait(ctx); err != nil {
			return nil
		}
	}
}

// Worker deposits into its banks.
type Worker struct {
	*base
}

func NewWorker(cfg Config) (*Worker, error) {
	b, err := newBase(cfg, "worker", (*bank.Bank).Deposit)
	if err != nil {
		return nil, err
	}
	return &Worker{base: b}, nil
}

// Spender withdraws from its banks.
type Spender struct {
	*base
}

func NewSpender(cfg Config) (*Spender, error) {
	b, err := newBase(cfg, "spender", (*bank.Bank).Withdraw)
	if err != nil {
		return nil, err
	}
	return &Spender{base: b}, nil
}

var (
	_ core.Actor      = (*Worker)(nil)
	_ core.Actor      = (*Spender)(nil)
	_ core.Observable = (*Worker)(nil)
	_ core.Observable = (*Spender)(nil)
)
