// Package core defines the contracts shared by banks, actors and the media.
package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind names the operation an event describes.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindPanic    Kind = "panic"
)

// Event is a single activity record produced while the simulation runs.
type Event struct {
	ID        string
	Actor     string
	Bank      string
	Kind      Kind
	Amount    decimal.Decimal
	Balance   decimal.Decimal // bank balance after the operation
	Success   bool
	Error     string
	Timestamp time.Time
}

// Reporter receives events. Implementations must be safe for concurrent use.
type Reporter interface {
	Report(Event)
}

// Actor is an independently scheduled unit of work.
// Run blocks until ctx is cancelled and returns nil on a clean stop.
type Actor interface {
	Name() string
	Run(ctx context.Context) error
}

// Observable is anything the media can take a live snapshot of.
type Observable interface {
	Name() string
	Snapshot() Snapshot
}

// Snapshot is a point-in-time view of an observable entity.
type Snapshot struct {
	Name      string
	Role      string
	Amount    decimal.Decimal // balance for banks, total moved for actors
	Succeeded int64
	Failed    int64
}

// NullReporter discards all events.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Event) {}

// MultiReporter fans every event out to each of its reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		if r != nil {
			r.Report(e)
		}
	}
}
