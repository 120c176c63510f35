// Package ratelimit paces actor loops so that every pause between
// operations is also a cancellation point.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer allows one operation per interval, starting one interval after
// creation. A zero interval disables pacing but Wait still reports
// cancellation.
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(interval time.Duration) *Pacer {
	limiter := rate.NewLimiter(limitFor(interval), 1)
	// the bucket starts full; drain it so the first Wait is paced too
	limiter.Allow()
	return &Pacer{limiter: limiter}
}

// Wait blocks until the next operation is allowed or ctx is done.
// It returns ctx's error (or a deadline error from the limiter) when the
// caller should stop.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.limiter.Limit() == rate.Inf {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func limitFor(interval time.Duration) rate.Limit {
	if interval <= 0 {
		return rate.Inf
	}
	return rate.Every(interval)
}
