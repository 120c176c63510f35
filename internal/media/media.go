// Package media is the passive observer of a simulation run: it records
// every activity event and renders reports over them.
package media

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"banksim/internal/core"
)

// Media records events from all actors and banks.
type Media struct {
	clock core.Clock

	mu          sync.Mutex
	observables []core.Observable
	events      []core.Event
	startTime   time.Time
	endTime     time.Time
}

// Option configures a Media.
type Option func(*Media)

// WithClock sets the clock used for event timestamps and durations.
func WithClock(c core.Clock) Option {
	return func(m *Media) { m.clock = c }
}

// New creates a Media watching observables.
func New(observables []core.Observable, opts ...Option) *Media {
	m := &Media{
		observables: append([]core.Observable(nil), observables...),
		clock:       core.RealClock{},
		events:      make([]core.Event, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startTime = m.clock.Now()
	return m
}

// Report appends an event. Thread-safe; events are never dropped.
// Missing IDs and timestamps are filled in under the lock so the log is
// ordered by timestamp.
func (m *Media) Report(e core.Event) {
	m.RecordEvent(e)
}

// RecordEvent is Report for callers that do not hold a core.Reporter.
func (m *Media) RecordEvent(e core.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.Timestamp.IsZero() {
		e.Timestamp = m.clock.Now()
	}
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	m.events = append(m.events, e)
}

// Events returns a copy of recorded events.
func (m *Media) Events() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]core.Event, len(m.events))
	copy(result, m.events)
	return result
}

// Len returns the number of recorded events.
func (m *Media) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Watch adds entities to snapshot. Banks need the media as their reporter
// before the media can know about them, so wiring happens in two steps.
func (m *Media) Watch(observables ...core.Observable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observables = append(m.observables, observables...)
}

// Snapshots reads the live state of every watched entity. Each entity is
// read under its own synchronization, not under the media lock.
func (m *Media) Snapshots() []core.Snapshot {
	m.mu.Lock()
	observables := append([]core.Observable(nil), m.observables...)
	m.mu.Unlock()

	out := make([]core.Snapshot, 0, len(observables))
	for _, o := range observables {
		out = append(out, o.Snapshot())
	}
	return out
}

// Close marks the end of the run. Later calls are no-ops; recording and
// reporting keep working after Close.
func (m *Media) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.endTime.IsZero() {
		m.endTime = m.clock.Now()
	}
}

// Duration returns the run duration.
// If the media is closed, returns the duration from start to end.
// If still running, returns the duration from start to now.
func (m *Media) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.endTime.IsZero() {
		return m.endTime.Sub(m.startTime)
	}
	return m.clock.Since(m.startTime)
}

// Summarize computes a summary of the events recorded so far.
func (m *Media) Summarize() *Summary {
	return ComputeSummary(m.Events(), m.Duration(), m.Snapshots())
}
