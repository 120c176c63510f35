// Package controller drives one simulation run: it builds the bank system,
// runs every actor for a fixed window, stops them and reports.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"banksim/internal/actor"
	"banksim/internal/config"
	"banksim/internal/coordinator"
	"banksim/internal/core"
	"banksim/internal/media"
	"banksim/internal/metrics"
	"banksim/internal/progress"
	"banksim/internal/registry"
)

var (
	// ErrInvalidConfiguration is returned by InitBankSystemData before
	// anything is constructed.
	ErrInvalidConfiguration = config.ErrInvalidConfiguration
	// ErrInterruptedWait is logged when the working window or the join
	// barrier is cut short. The run still completes best-effort.
	ErrInterruptedWait = errors.New("interrupted wait")
	// ErrWrongPhase is returned when an operation is called out of order.
	ErrWrongPhase = errors.New("operation not allowed in this phase")
)

// Phase is the controller lifecycle state. Phases never repeat.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRun
	PhaseReport
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRun:
		return "run"
	case PhaseReport:
		return "report"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Controller owns the actor lifecycle of a single run.
// It is not safe for concurrent use.
type Controller struct {
	cfg      config.Config
	log      logrus.FieldLogger
	out      io.Writer
	recorder *metrics.Recorder
	clock    core.Clock
	runID    string

	phase       Phase
	initialized bool
	interrupted bool

	dir      *registry.Directory
	media    *media.Media
	coord    *coordinator.Coordinator
	progress *progress.Progress

	// extra are spawned next to the registry's actors. Tests only.
	extra []core.Actor
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) { c.log = l }
}

// WithOutput sets where the day start and end reports are rendered.
func WithOutput(w io.Writer) Option {
	return func(c *Controller) { c.out = w }
}

// WithMetrics feeds every event and the active actor count to r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock sets the clock used by the media.
func WithClock(clock core.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// New creates a controller. Amounts, interval, targeting, seed and the
// reporter settings come from cfg; counts and duration are passed to
// InitBankSystemData and StartWorking.
func New(cfg config.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:   cfg,
		clock: core.RealClock{},
		runID: uuid.NewString(),
		phase: PhaseInit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.log = l
	}
	c.log = c.log.WithField("run", c.runID)
	return c
}

// InitBankSystemData builds the banks, workers and spenders, registers
// them and freezes the registry. Invalid input is reported before any
// entity exists.
func (c *Controller) InitBankSystemData(bankCount, workerCount, spenderCount int) error {
	if c.phase != PhaseInit || c.initialized {
		return fmt.Errorf("init in phase %s: %w", c.phase, ErrWrongPhase)
	}
	if err := c.validate(bankCount, workerCount, spenderCount); err != nil {
		return err
	}

	m := media.New(nil, media.WithClock(c.clock))
	var rep core.Reporter = m
	if c.recorder != nil {
		rep = core.MultiReporter{m, c.recorder}
	}
	rnd := rand.New(rand.NewSource(c.cfg.Seed))

	b := registry.NewBuilder()
	if err := b.SetBanks(c.createBanks(bankCount, rep)); err != nil {
		return err
	}
	workers, err := c.createWorkers(workerCount, b.Banks(), rnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if err := b.SetWorkers(workers); err != nil {
		return err
	}
	spenders, err := c.createSpenders(spenderCount, b.Banks(), rnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if err := b.SetSpenders(spenders); err != nil {
		return err
	}

	c.dir = b.Freeze()
	m.Watch(c.dir.Observables()...)
	c.media = m
	c.coord = coordinator.NewCoordinator(rep, c.log)
	c.progress = progress.NewProgress(m, c.cfg.ReportInterval, c.clock)
	if c.out != nil {
		c.progress.SetOutput(c.out)
	}
	c.initialized = true

	c.log.WithFields(logrus.Fields{
		"banks":    bankCount,
		"workers":  workerCount,
		"spenders": spenderCount,
	}).Info("bank system initialized")
	return nil
}

func (c *Controller) validate(bankCount, workerCount, spenderCount int) error {
	if err := config.ValidateCounts(bankCount, workerCount, spenderCount); err != nil {
		return err
	}
	if _, err := actor.ParsePolicy(c.cfg.Targeting); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if c.cfg.InitialBalance < 0 {
		return fmt.Errorf("%w: initial balance %d is negative", ErrInvalidConfiguration, c.cfg.InitialBalance)
	}
	if c.cfg.ActorInterval < 0 {
		return fmt.Errorf("%w: actor interval %v is negative", ErrInvalidConfiguration, c.cfg.ActorInterval)
	}
	return c.cfg.ValidateAmounts(workerCount, spenderCount)
}

// StartWorking runs every actor for d, then cancels them and waits for all
// of them to return before reporting. If ctx is cancelled during the window,
// or the join exceeds the configured join timeout, the interruption is
// logged and the run still finishes; Interrupted reports it afterwards.
func (c *Controller) StartWorking(ctx context.Context, d time.Duration) error {
	if c.phase != PhaseInit || !c.initialized {
		return fmt.Errorf("start working in phase %s: %w", c.phase, ErrWrongPhase)
	}
	if d < 0 {
		return fmt.Errorf("%w: working duration %v is negative", ErrInvalidConfiguration, d)
	}
	c.phase = PhaseRun

	if c.out != nil {
		c.media.PrintDayStart(c.out)
	}
	c.StartMedia()

	actors := append(c.dir.Actors(), c.extra...)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.coord.Spawn(runCtx, actors)
	c.observeActive()
	c.log.WithFields(logrus.Fields{"actors": c.coord.Spawned(), "duration": d}).Info("working day started")

	c.sleep(ctx, d)
	cancel()
	c.join()
	c.observeActive()

	c.progress.Stop()
	c.phase = PhaseReport
	c.media.Close()
	if c.out != nil {
		c.media.PrintDayEnd(c.out)
	}
	c.phase = PhaseDone

	c.log.WithFields(logrus.Fields{
		"events":      c.media.Len(),
		"interrupted": c.interrupted,
	}).Info("working day ended")
	return nil
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		c.interrupted = true
		c.log.WithError(fmt.Errorf("working window: %w: %v", ErrInterruptedWait, ctx.Err())).
			Error("working window cut short, stopping actors")
	}
}

func (c *Controller) join() {
	if c.cfg.JoinTimeout <= 0 {
		c.coord.Wait()
		return
	}
	joinCtx, cancel := context.WithTimeout(context.Background(), c.cfg.JoinTimeout)
	defer cancel()
	if err := c.coord.WaitContext(joinCtx); err != nil {
		c.interrupted = true
		c.log.WithError(fmt.Errorf("join: %w: %v", ErrInterruptedWait, err)).
			WithFields(logrus.Fields{"active": c.coord.ActiveActors(), "stuck": c.stuckActors()}).
			Error("actors did not stop in time, reporting anyway")
	}
}

// stuckActors names registered actors whose loop has not returned.
func (c *Controller) stuckActors() []string {
	var names []string
	for _, w := range c.dir.Workers() {
		if w.Running() {
			names = append(names, w.Name())
		}
	}
	for _, s := range c.dir.Spenders() {
		if s.Running() {
			names = append(names, s.Name())
		}
	}
	return names
}

func (c *Controller) observeActive() {
	if c.recorder != nil {
		c.recorder.SetActiveActors(c.coord.ActiveActors())
	}
}

// StartMedia starts the periodic background reporter when the configured
// report interval is positive. It reports whether the reporter runs.
func (c *Controller) StartMedia() bool {
	if c.progress == nil || !c.progress.Enabled() {
		return false
	}
	c.progress.Start()
	return true
}

// Run is InitBankSystemData followed by StartWorking with the counts and
// duration from the configuration.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.InitBankSystemData(c.cfg.Banks, c.cfg.Workers, c.cfg.Spenders); err != nil {
		return err
	}
	return c.StartWorking(ctx, c.cfg.WorkingDuration)
}

// Media returns the observer of this run, nil before initialization.
func (c *Controller) Media() *media.Media { return c.media }

// Directory returns the frozen registry, nil before initialization.
func (c *Controller) Directory() *registry.Directory { return c.dir }

func (c *Controller) RunID() string { return c.runID }
func (c *Controller) Phase() Phase  { return c.phase }

// Interrupted reports whether the window or the join was cut short.
func (c *Controller) Interrupted() bool { return c.interrupted }

// ActiveActors returns how many actor goroutines are still running.
func (c *Controller) ActiveActors() int {
	if c.coord == nil {
		return 0
	}
	return c.coord.ActiveActors()
}
