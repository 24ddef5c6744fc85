// Package daemon runs the automation on a fixed interval until it is shut down.
package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/logging"
)

// State is the scheduler lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateWaiting
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned when Start is called more than once.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Runner is one automation cycle.
type Runner interface {
	Run(ctx context.Context) automation.RunResult
}

// Scheduler runs a Runner immediately and then once per interval, measured from the
// end of the previous run. Runs never overlap.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	onResult func(automation.RunResult)

	mu           sync.Mutex
	state        State
	started      bool
	shuttingDown bool
	timer        *time.Timer
	runs         int

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New returns an idle scheduler. onResult, if not nil, receives every run result on
// the scheduler goroutine before the next wait begins.
func New(runner Runner, interval time.Duration, onResult func(automation.RunResult)) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		onResult: onResult,
		state:    StateIdle,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop on the calling goroutine and returns once the scheduler has
// stopped. Cancelling ctx is treated like Shutdown; ctx is also passed to every run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	defer s.stop()

	logging.Info("daemon mode started", "interval", s.interval.String())

	for {
		if !s.beginRun() {
			return nil
		}

		result := s.runner.Run(ctx)

		s.mu.Lock()
		s.runs++
		s.mu.Unlock()

		if s.onResult != nil {
			s.onResult(result)
		}

		timer, ok := s.arm()
		if !ok {
			return nil
		}

		select {
		case <-timer.C:
			logging.Info("running scheduled automation check")
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			s.Shutdown()
			return nil
		}
	}
}

// Shutdown asks the scheduler to stop. A pending timer is cancelled; a run in
// progress is allowed to finish. It returns true for the first request and false
// for every later one.
func (s *Scheduler) Shutdown() bool {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return false
	}
	s.shuttingDown = true
	if s.state != StateStopped {
		s.state = StateShuttingDown
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		logging.Info("canceled pending automation timer")
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	return true
}

// Done is closed once the scheduler has stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Runs returns the number of completed runs.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) beginRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.timer = nil
	s.state = StateRunning
	return true
}

// arm creates the timer for the next run unless shutdown was requested.
func (s *Scheduler) arm() (*time.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return nil, false
	}
	s.timer = time.NewTimer(s.interval)
	s.state = StateWaiting
	return s.timer, true
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = StateStopped
	s.mu.Unlock()

	close(s.done)
	logging.Info("shutdown complete", "runs", s.Runs())
}
