package media

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"banksim/internal/core"
)

// Summary aggregates a run's events.
type Summary struct {
	Duration     time.Duration
	TotalEvents  int
	SuccessCount int
	FailureCount int
	Deposited    decimal.Decimal
	Withdrawn    decimal.Decimal
	OpsPerSec    float64
	ByActor      map[string]*ActorStats
	ByBank       map[string]*BankStats
	Entities     []core.Snapshot
}

// ActorStats counts the operations one actor caused.
type ActorStats struct {
	Events    int
	Succeeded int
	Failed    int
	Amount    decimal.Decimal
}

// BankStats counts the operations one bank served.
type BankStats struct {
	Deposits    int
	Withdrawals int
	Failed      int
	Deposited   decimal.Decimal
	Withdrawn   decimal.Decimal
}

// Net returns deposits minus successful withdrawals.
func (b *BankStats) Net() decimal.Decimal {
	return b.Deposited.Sub(b.Withdrawn)
}

// ComputeSummary computes a summary from events. Pure function, no side effects.
func ComputeSummary(events []core.Event, d time.Duration, entities []core.Snapshot) *Summary {
	s := &Summary{
		Duration:  d,
		Deposited: decimal.Zero,
		Withdrawn: decimal.Zero,
		ByActor:   make(map[string]*ActorStats),
		ByBank:    make(map[string]*BankStats),
		Entities:  append([]core.Snapshot(nil), entities...),
	}

	for _, e := range events {
		s.TotalEvents++
		if e.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}

		as, ok := s.ByActor[e.Actor]
		if !ok {
			as = &ActorStats{Amount: decimal.Zero}
			s.ByActor[e.Actor] = as
		}
		as.Events++
		if e.Success {
			as.Succeeded++
			as.Amount = as.Amount.Add(e.Amount)
		} else {
			as.Failed++
		}

		if e.Bank == "" {
			continue
		}
		bs, ok := s.ByBank[e.Bank]
		if !ok {
			bs = &BankStats{Deposited: decimal.Zero, Withdrawn: decimal.Zero}
			s.ByBank[e.Bank] = bs
		}
		if !e.Success {
			bs.Failed++
			continue
		}
		switch e.Kind {
		case core.KindDeposit:
			bs.Deposits++
			bs.Deposited = bs.Deposited.Add(e.Amount)
			s.Deposited = s.Deposited.Add(e.Amount)
		case core.KindWithdraw:
			bs.Withdrawals++
			bs.Withdrawn = bs.Withdrawn.Add(e.Amount)
			s.Withdrawn = s.Withdrawn.Add(e.Amount)
		}
	}

	if d > 0 {
		s.OpsPerSec = float64(s.TotalEvents) / d.Seconds()
	}
	return s
}

// ActorNames returns actor names in sorted order.
func (s *Summary) ActorNames() []string {
	return sortedKeys(s.ByActor)
}

// BankNames returns bank names in sorted order.
func (s *Summary) BankNames() []string {
	return sortedKeys(s.ByBank)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
