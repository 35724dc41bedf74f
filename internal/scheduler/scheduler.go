package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/simtemp/internal/domain"
)

type State int32

const (
	Idle State = iota
	Armed
	Firing
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Firing:
		return "firing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// minPeriod guards against a non-positive period turning the timer into a
// busy loop.
const minPeriod = time.Millisecond

// PeriodFunc is consulted on every re-arm so configuration writes take effect
// on the next deadline.
type PeriodFunc func() time.Duration

// CycleFunc runs one sampling cycle. It must not block and must not call
// Cancel on its own scheduler.
type CycleFunc func(now time.Time)

// Scheduler is a self-rearming one-shot timer driving CycleFunc.
type Scheduler struct {
	period PeriodFunc
	cycle  CycleFunc

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup
	fired  atomic.Uint64
}

func New(period PeriodFunc, cycle CycleFunc) *Scheduler {
	return &Scheduler{period: period, cycle: cycle}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fired returns the number of completed cycles.
func (s *Scheduler) Fired() uint64 { return s.fired.Load() }

// Start arms the timer for the current period.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Idle:
	case Cancelled:
		return domain.ErrAlreadyCancelled
	default:
		return domain.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Armed

	deadline := time.Now().Add(s.nextPeriod())
	s.wg.Add(1)
	go s.run(ctx, deadline)
	return nil
}

// Cancel stops the scheduler from any state. It returns only after an
// in-flight cycle has completed; no cycle starts afterwards.
func (s *Scheduler) Cancel() error {
	s.mu.Lock()
	if s.state == Cancelled {
		s.mu.Unlock()
		return domain.ErrAlreadyCancelled
	}
	s.state = Cancelled
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *Scheduler) run(ctx context.Context, deadline time.Time) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !s.transition(Armed, Firing) {
			return
		}
		s.cycle(time.Now())
		s.fired.Add(1)

		deadline = forward(deadline, time.Now(), s.nextPeriod())
		if !s.transition(Firing, Armed) {
			return
		}
		timer.Reset(time.Until(deadline))
	}
}

func (s *Scheduler) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Scheduler) nextPeriod() time.Duration {
	p := s.period()
	if p < minPeriod {
		return minPeriod
	}
	return p
}

// forward advances deadline by whole periods until it lies after now, so a
// late cycle keeps the nominal cadence instead of drifting.
func forward(deadline, now time.Time, period time.Duration) time.Time {
	next := deadline.Add(period)
	if next.After(now) {
		return next
	}
	missed := now.Sub(next)/period + 1
	return next.Add(missed * period)
}
