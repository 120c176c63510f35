// Package registry is the directory of every entity in one simulation run.
//
// A Builder is filled during initialization and frozen into a Directory
// before any actor starts. The Directory has no setters, so it needs no
// locking once actors read it concurrently.
package registry

import (
	"errors"

	"banksim/internal/actor"
	"banksim/internal/bank"
	"banksim/internal/core"
)

// ErrFrozen is returned when a Builder is written after Freeze.
var ErrFrozen = errors.New("registry is frozen")

// Builder collects entities during initialization. Not safe for concurrent use.
type Builder struct {
	banks    []*bank.Bank
	workers  []*actor.Worker
	spenders []*actor.Spender
	frozen   bool
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) SetBanks(banks []*bank.Bank) error {
	if b.frozen {
		return ErrFrozen
	}
	b.banks = append([]*bank.Bank(nil), banks...)
	return nil
}

func (b *Builder) SetWorkers(workers []*actor.Worker) error {
	if b.frozen {
		return ErrFrozen
	}
	b.workers = append([]*actor.Worker(nil), workers...)
	return nil
}

func (b *Builder) SetSpenders(spenders []*actor.Spender) error {
	if b.frozen {
		return ErrFrozen
	}
	b.spenders = append([]*actor.Spender(nil), spenders...)
	return nil
}

// Banks returns the banks registered so far, for wiring actors to them.
func (b *Builder) Banks() []*bank.Bank {
	return append([]*bank.Bank(nil), b.banks...)
}

// Freeze ends the write phase and returns the read-only view.
// Calling it again returns an equivalent view.
func (b *Builder) Freeze() *Directory {
	b.frozen = true
	d := &Directory{
		banks:    append([]*bank.Bank(nil), b.banks...),
		workers:  append([]*actor.Worker(nil), b.workers...),
		spenders: append([]*actor.Spender(nil), b.spenders...),
	}
	return d
}

// Directory is the frozen registry. Accessors return copies.
type Directory struct {
	banks    []*bank.Bank
	workers  []*actor.Worker
	spenders []*actor.Spender
}

func (d *Directory) Banks() []*bank.Bank {
	return append([]*bank.Bank(nil), d.banks...)
}

func (d *Directory) Workers() []*actor.Worker {
	return append([]*actor.Worker(nil), d.workers...)
}

func (d *Directory) Spenders() []*actor.Spender {
	return append([]*actor.Spender(nil), d.spenders...)
}

// Actors returns workers then spenders in registration order.
func (d *Directory) Actors() []core.Actor {
	out := make([]core.Actor, 0, len(d.workers)+len(d.spenders))
	for _, w := range d.workers {
		out = append(out, w)
	}
	for _, s := range d.spenders {
		out = append(out, s)
	}
	return out
}

// Observables returns banks, workers and spenders.
func (d *Directory) Observables() []core.Observable {
	out := make([]core.Observable, 0, len(d.banks)+len(d.workers)+len(d.spenders))
	for _, b := range d.banks {
		out = append(out, b)
	}
	for _, w := range d.workers {
		out = append(out, w)
	}
	for _, s := range d.spenders {
		out = append(out, s)
	}
	return out
}
