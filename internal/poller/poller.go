package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/internal/backend"
)

// State is the poller's baseline state.
type State int

const (
	// StateUninitialized means no baseline has been read since mount.
	StateUninitialized State = iota
	// StateArmed means a baseline exists and rises will be reported.
	StateArmed
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	default:
		return "uninitialized"
	}
}

// Source reads the list of newly scheduled work.
type Source interface {
	NewScheduled(ctx context.Context) ([]backend.ScheduledTask, error)
}

// Event describes a rise in the new-work count.
type Event struct {
	Previous int
	Current  int
	Tasks    []backend.ScheduledTask
}

// Handler reacts to new work. It runs on the polling goroutine before the
// baseline moves to the new count.
type Handler func(ctx context.Context, ev Event)

// Poller watches the new-scheduled count and calls its handler only when
// the count rises above the last observation.
type Poller struct {
	src       Source
	interval  time.Duration
	onNewWork Handler
	logger    zerolog.Logger

	pollMu   sync.Mutex // serializes Poll
	mu       sync.RWMutex
	state    State
	baseline int
}

// New creates an uninitialized poller.
func New(src Source, interval time.Duration, onNewWork Handler, logger zerolog.Logger) *Poller {
	if onNewWork == nil {
		onNewWork = func(context.Context, Event) {}
	}
	return &Poller{
		src:       src,
		interval:  interval,
		onNewWork: onNewWork,
		logger:    logger.With().Str("component", "poller").Logger(),
	}
}

// Baseline returns the last observed count and the current state.
func (p *Poller) Baseline() (int, State) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.baseline, p.state
}

// Reset drops the baseline. The next poll re-arms without notifying.
func (p *Poller) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateUninitialized
	p.baseline = 0
}

// Arm drops any baseline and reads a fresh one without notifying.
func (p *Poller) Arm(ctx context.Context) error {
	p.Reset()
	_, err := p.Poll(ctx)
	return err
}

// Poll reads the current count once. It reports whether the handler fired.
// The first successful read only establishes the baseline. A failed read
// leaves state and baseline untouched.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	tasks, err := p.src.NewScheduled(ctx)
	if err != nil {
		return false, err
	}
	current := len(tasks)

	previous, state := p.Baseline()
	if state == StateUninitialized {
		p.setBaseline(current)
		p.logger.Debug().Int("baseline", current).Msg("poller armed")
		return false, nil
	}

	if current > previous {
		p.logger.Info().Int("previous", previous).Int("current", current).Msg("new work scheduled")
		p.onNewWork(ctx, Event{Previous: previous, Current: current, Tasks: tasks})
		p.setBaseline(current)
		return true, nil
	}

	p.setBaseline(current)
	return false, nil
}

func (p *Poller) setBaseline(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseline = n
	p.state = StateArmed
}

// Run arms the poller and then polls on every interval until ctx is done.
// Once ctx is cancelled no further poll starts.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("starting new-work poller")

	if err := p.Arm(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn().Err(err).Msg("could not read initial new-work count")
	}

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("new-work poller stopped")
			return
		case <-timer.C:
			if ctx.Err() != nil {
				return
			}
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn().Err(err).Msg("new-work poll failed")
			}
			timer.Reset(p.interval)
		}
	}
}
