// Package progress periodically prints live activity from the media while
// a simulation runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"banksim/internal/core"
	"banksim/internal/media"
)

type Progress struct {
	startTime time.Time
	media     *media.Media
	interval  time.Duration
	ticker    *time.Ticker
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   atomic.Bool
	stopped   atomic.Bool
	ticks     atomic.Int64
	clock     core.Clock
	output    io.Writer
	mu        sync.Mutex
}

// NewProgress creates a reporter over m. A non-positive interval makes
// Start a no-op. Elapsed time is read from clock, or the wall clock if nil.
func NewProgress(m *media.Media, interval time.Duration, clock core.Clock) *Progress {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Progress{
		media:    m,
		interval: interval,
		clock:    clock,
		output:   os.Stderr,
	}
}

func (p *Progress) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = w
}

// Enabled reports whether Start will launch the background reporter.
func (p *Progress) Enabled() bool {
	return p.interval > 0
}

// Start launches the reporter goroutine. Only the first call has effect.
func (p *Progress) Start() {
	if !p.Enabled() || !p.started.CompareAndSwap(false, true) {
		return
	}
	p.startTime = p.clock.Now()
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.ticker = time.NewTicker(p.interval)
	go p.run()
}

func (p *Progress) run() {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			p.printProgress()
		}
	}
}

func (p *Progress) printProgress() {
	s := p.media.Summarize()
	elapsed := p.clock.Since(p.startTime).Round(time.Second)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	p.ticks.Add(1)
	p.mu.Lock()
	fmt.Fprintf(p.output, "\033[K[%02d:%02d] Operations: %d | Ops/sec: %.1f | Failed: %d | Deposited: %s | Withdrawn: %s\n",
		mins, secs, s.TotalEvents, s.OpsPerSec, s.FailureCount,
		s.Deposited.StringFixed(2), s.Withdrawn.StringFixed(2))
	p.mu.Unlock()
}

// Stop ends the reporter and waits for its goroutine to exit. Safe to call
// more than once and without Start.
func (p *Progress) Stop() {
	if !p.started.Load() || p.stopped.Swap(true) {
		return
	}
	p.ticker.Stop()
	close(p.stopCh)
	<-p.doneCh
}
