package bank

import (
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banksim/internal/core"
)

func TestBank_DepositReturnsNewBalance(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := New("bank-1", decimal.NewFromInt(100), rep)

	bal, err := b.Deposit("worker-1", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(150)))
	assert.True(t, b.Balance().Equal(decimal.NewFromInt(150)))

	events := rep.Events()
	require.Len(t, events, 1)
	assert.Equal(t, core.KindDeposit, events[0].Kind)
	assert.Equal(t, "worker-1", events[0].Actor)
	assert.Equal(t, "bank-1", events[0].Bank)
	assert.True(t, events[0].Success)
	assert.True(t, events[0].Balance.Equal(decimal.NewFromInt(150)))
}

func TestBank_WithdrawInsufficientFundsLeavesBalance(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := New("bank-1", decimal.NewFromInt(30), rep)

	bal, err := b.Withdraw("spender-1", decimal.NewFromInt(31))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, bal.Equal(decimal.NewFromInt(30)))
	assert.True(t, b.Balance().Equal(decimal.NewFromInt(30)))

	events := rep.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	assert.Equal(t, core.KindWithdraw, events[0].Kind)
	assert.Contains(t, events[0].Error, "insufficient funds")
}

func TestBank_WithdrawExactBalance(t *testing.T) {
	b := New("bank-1", decimal.NewFromInt(30), nil)

	bal, err := b.Withdraw("spender-1", decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestBank_RejectsNonPositiveAmounts(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := New("bank-1", decimal.NewFromInt(10), rep)

	_, err := b.Deposit("worker-1", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = b.Withdraw("spender-1", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.True(t, b.Balance().Equal(decimal.NewFromInt(10)))
	assert.Len(t, rep.Events(), 2)
	assert.Equal(t, int64(2), b.Snapshot().Failed)
}

// Final balance must equal initial + deposits - successful withdrawals
// no matter how the goroutines interleave.
func TestBank_ConcurrentMutationsAreLinearizable(t *testing.T) {
	rep := &core.RecordingReporter{}
	initial := decimal.NewFromInt(500)
	b := New("bank-1", initial, rep)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Deposit(fmt.Sprintf("worker-%d", id), decimal.NewFromInt(int64(1+i%7)))
			}
		}(w)
	}
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Withdraw(fmt.Sprintf("spender-%d", id), decimal.NewFromInt(int64(1+i%11)))
			}
		}(s)
	}
	wg.Wait()

	deposited, withdrawn := decimal.Zero, decimal.Zero
	events := rep.Events()
	require.Len(t, events, 16*200)
	for _, e := range events {
		if !e.Success {
			continue
		}
		switch e.Kind {
		case core.KindDeposit:
			deposited = deposited.Add(e.Amount)
		case core.KindWithdraw:
			withdrawn = withdrawn.Add(e.Amount)
		}
	}

	want := initial.Add(deposited).Sub(withdrawn)
	assert.True(t, b.Balance().Equal(want), "balance %s, want %s", b.Balance(), want)
	assert.False(t, b.Balance().IsNegative())

	snap := b.Snapshot()
	assert.Equal(t, int64(len(events)), snap.Succeeded+snap.Failed)
}

// Events for one bank are emitted under its lock, so each event's balance
// must follow from the previous one.
func TestBank_EventsFollowMutationOrder(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := New("bank-1", decimal.Zero, rep)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Deposit("w", decimal.NewFromInt(3))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Withdraw("s", decimal.NewFromInt(2))
			}
		}()
	}
	wg.Wait()

	prev := decimal.Zero
	for _, e := range rep.Events() {
		want := prev
		if e.Success {
			if e.Kind == core.KindDeposit {
				want = prev.Add(e.Amount)
			} else {
				want = prev.Sub(e.Amount)
			}
		}
		require.True(t, e.Balance.Equal(want), "event balance %s, want %s", e.Balance, want)
		prev = e.Balance
	}
}
