// Package coordinator manages actor goroutine lifecycle: bulk spawn,
// cooperative stop through a shared context, and the join barrier.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"banksim/internal/core"
)

type Coordinator struct {
	wg          sync.WaitGroup
	reporter    core.Reporter
	log         logrus.FieldLogger
	spawned     atomic.Int32
	activeCount atomic.Int32
}

// NewCoordinator creates a Coordinator. Panics recovered from actors are
// sent to reporter; a nil logger discards log output.
func NewCoordinator(reporter core.Reporter, log logrus.FieldLogger) *Coordinator {
	if reporter == nil {
		reporter = core.NullReporter
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Coordinator{
		reporter: reporter,
		log:      log,
	}
}

// Spawn starts one goroutine per actor. Every actor shares ctx, so
// cancelling it is the single stop signal for the whole group.
func (c *Coordinator) Spawn(ctx context.Context, actors []core.Actor) {
	for _, a := range actors {
		c.wg.Add(1)
		c.spawned.Add(1)
		c.activeCount.Add(1)
		go func(a core.Actor) {
			defer func() {
				c.activeCount.Add(-1)
				c.wg.Done()
			}()
			defer c.recoverPanic(a.Name())
			if err := a.Run(ctx); err != nil {
				c.log.WithField("actor", a.Name()).WithError(err).Warn("actor exited with error")
			}
		}(a)
	}
}

// Wait blocks until every spawned actor has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// WaitContext is Wait bounded by ctx. It returns ctx's error if ctx ends
// before the barrier is reached; actors keep running in that case.
func (c *Coordinator) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveActors returns how many actor goroutines have not yet returned.
func (c *Coordinator) ActiveActors() int {
	return int(c.activeCount.Load())
}

// Spawned returns the total number of actors started.
func (c *Coordinator) Spawned() int {
	return int(c.spawned.Load())
}

// recoverPanic recovers from panics in actor goroutines and reports them as failed events.
func (c *Coordinator) recoverPanic(actor string) {
	if r := recover(); r != nil {
		c.log.WithField("actor", actor).Errorf("actor panicked: %v", r)
		c.reporter.Report(core.Event{
			Actor:   actor,
			Kind:    core.KindPanic,
			Success: false,
			Error:   fmt.Sprintf("panic: %v", r),
		})
	}
}
