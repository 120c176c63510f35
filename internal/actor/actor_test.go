package actor

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"banksim/internal/bank"
	"banksim/internal/core"
	"banksim/internal/money"
)

func newTestBank(name string, initial int64, rep core.Reporter) *bank.Bank {
	return bank.New(name, decimal.NewFromInt(initial), rep)
}

func TestNewWorker_RequiresBank(t *testing.T) {
	_, err := NewWorker(Config{Name: "worker-1", Amounts: money.Fixed(10)})
	if err == nil {
		t.Fatal("expected error for worker without banks")
	}
}

func TestNewSpender_RejectsBadConfig(t *testing.T) {
	b := newTestBank("bank-1", 0, nil)
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing name", Config{Banks: []*bank.Bank{b}, Amounts: money.Fixed(1)}},
		{"bad range", Config{Name: "s", Banks: []*bank.Bank{b}, Amounts: money.Range{Min: 5, Max: 1}}},
		{"unknown policy", Config{Name: "s", Banks: []*bank.Bank{b}, Amounts: money.Fixed(1), Policy: "sideways"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpender(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWorker_DepositsUntilCancelled(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := newTestBank("bank-1", 0, rep)
	w, err := NewWorker(Config{
		Name:     "worker-1",
		Banks:    []*bank.Bank{b},
		Amounts:  money.Fixed(10),
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	snap := w.Snapshot()
	succeeded, failed := snap.Succeeded, snap.Failed
	if succeeded == 0 {
		t.Error("expected at least one deposit")
	}
	if failed != 0 {
		t.Errorf("expected no failures, got %d", failed)
	}
	if !b.Balance().Equal(decimal.NewFromInt(10 * succeeded)) {
		t.Errorf("balance %s does not match %d deposits of 10", b.Balance(), succeeded)
	}
	if len(rep.Events()) != int(succeeded) {
		t.Errorf("expected %d events, got %d", succeeded, len(rep.Events()))
	}
	if w.Running() {
		t.Error("worker should not be running after Run returns")
	}
	if !w.Snapshot().Amount.Equal(b.Balance()) {
		t.Errorf("snapshot amount %s, want %s", w.Snapshot().Amount, b.Balance())
	}
}

func TestSpender_InsufficientFundsIsNotFatal(t *testing.T) {
	rep := &core.RecordingReporter{}
	b := newTestBank("bank-1", 5, rep)
	s, err := NewSpender(Config{
		Name:     "spender-1",
		Banks:    []*bank.Bank{b},
		Amounts:  money.Fixed(10),
		Interval: time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}

	snap := s.Snapshot()
	succeeded, failed := snap.Succeeded, snap.Failed
	if succeeded != 0 {
		t.Errorf("expected no successful withdrawals, got %d", succeeded)
	}
	if failed < 2 {
		t.Errorf("expected the spender to keep retrying, got %d attempts", failed)
	}
	if !b.Balance().Equal(decimal.NewFromInt(5)) {
		t.Errorf("balance changed to %s", b.Balance())
	}
	for _, e := range rep.Events() {
		if e.Success {
			t.Errorf("unexpected successful event %+v", e)
		}
	}
}

func TestActor_CancelledBeforeStartDoesNothing(t *testing.T) {
	b := newTestBank("bank-1", 0, nil)
	w, _ := NewWorker(Config{Name: "worker-1", Banks: []*bank.Bank{b}, Amounts: money.Fixed(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("actor did not observe cancellation")
	}
	if succeeded := w.Snapshot().Succeeded; succeeded != 0 {
		t.Errorf("expected no operations, got %d", succeeded)
	}
}

func TestActor_CancelInterruptsLongInterval(t *testing.T) {
	b := newTestBank("bank-1", 0, nil)
	w, _ := NewWorker(Config{Name: "worker-1", Banks: []*bank.Bank{b}, Amounts: money.Fixed(1), Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleeping actor did not exit on cancellation")
	}
}

func TestActor_RejectsConcurrentRun(t *testing.T) {
	b := newTestBank("bank-1", 0, nil)
	w, _ := NewWorker(Config{Name: "worker-1", Banks: []*bank.Bank{b}, Amounts: money.Fixed(1), Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	deadline := time.Now().Add(time.Second)
	for !w.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := w.Run(ctx); err == nil {
		t.Error("expected error for a second concurrent Run")
	}
	cancel()
	wg.Wait()
}

func TestSelector_Policies(t *testing.T) {
	banks := []*bank.Bank{
		newTestBank("a", 0, nil),
		newTestBank("b", 0, nil),
		newTestBank("c", 0, nil),
	}

	fixed := &selector{policy: PolicyFixed, banks: banks}
	for i := 0; i < 5; i++ {
		if got := fixed.pick().Name(); got != "a" {
			t.Errorf("fixed policy picked %q", got)
		}
	}

	rr := &selector{policy: PolicyRoundRobin, banks: banks}
	var order []string
	for i := 0; i < 4; i++ {
		order = append(order, rr.pick().Name())
	}
	if want := []string{"a", "b", "c", "a"}; !equal(order, want) {
		t.Errorf("round-robin order %v, want %v", order, want)
	}

	r1 := &selector{policy: PolicyRandom, banks: banks, rnd: rand.New(rand.NewSource(99))}
	r2 := &selector{policy: PolicyRandom, banks: banks, rnd: rand.New(rand.NewSource(99))}
	for i := 0; i < 20; i++ {
		if r1.pick() != r2.pick() {
			t.Fatal("random policy is not reproducible for a fixed seed")
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicyFixed, false},
		{"fixed", PolicyFixed, false},
		{"round-robin", PolicyRoundRobin, false},
		{"random", PolicyRandom, false},
		{"nearest", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
