package timer

import (
	"context"
	"sync"
	"time"
)

// minDelay guards time.NewTicker against non-positive periods.
const minDelay = time.Millisecond

type commandKind int

const (
	commandSet commandKind = iota
	commandClear
)

type command struct {
	kind  commandKind
	id    string
	delay time.Duration
}

// interval is one running tick source owned by the worker goroutine.
type interval struct {
	ticker *time.Ticker
	stop   chan struct{}
}

// Service is the isolated interval scheduler.
//
// It runs on its own goroutine and shares nothing with its owner: the owner
// posts set/clear commands and receives tick notifications by id.
//
// Thread Safety:
//   - Set, Clear and Ticks are safe for concurrent use and never block,
//     whether or not Run has started. Commands posted before Run are
//     applied in order once it starts; commands posted after Run returns
//     are dropped.
//   - Interval state is only touched by the worker goroutine started by Run.
type Service struct {
	mu      sync.Mutex
	pending []command
	stopped bool
	wake    chan struct{}

	ticks chan string
}

// NewService creates a scheduler. Call Run to start the worker.
func NewService() *Service {
	return &Service{
		wake:  make(chan struct{}, 1),
		ticks: make(chan string),
	}
}

// Ticks returns the channel on which ids are delivered each time their
// interval elapses. Ticks that the owner does not collect in time are
// coalesced, never queued.
func (s *Service) Ticks() <-chan string {
	return s.ticks
}

// Set starts an interval for id. If id is already running the call does
// nothing: the existing sequence keeps its period and phase.
func (s *Service) Set(id string, delay time.Duration) {
	s.post(command{kind: commandSet, id: id, delay: delay})
}

// Clear stops the interval for id. Clearing an unknown id is a no-op.
func (s *Service) Clear(id string) {
	s.post(command{kind: commandClear, id: id})
}

func (s *Service) post(cmd command) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pending = append(s.pending, cmd)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// takePending hands the queued commands to the worker.
func (s *Service) takePending() []command {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds := s.pending
	s.pending = nil
	return cmds
}

// Run executes the worker loop until ctx is cancelled. All intervals are
// stopped before it returns.
func (s *Service) Run(ctx context.Context) {
	intervals := make(map[string]*interval)
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.pending = nil
		s.mu.Unlock()

		for id, iv := range intervals {
			iv.ticker.Stop()
			close(iv.stop)
			delete(intervals, id)
		}
	}()

	for {
		for _, cmd := range s.takePending() {
			s.apply(ctx, intervals, cmd)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
	}
}

func (s *Service) apply(ctx context.Context, intervals map[string]*interval, cmd command) {
	switch cmd.kind {
	case commandSet:
		if _, running := intervals[cmd.id]; running {
			return
		}
		delay := cmd.delay
		if delay < minDelay {
			delay = minDelay
		}
		iv := &interval{
			ticker: time.NewTicker(delay),
			stop:   make(chan struct{}),
		}
		intervals[cmd.id] = iv
		go s.forward(ctx, cmd.id, iv)
	case commandClear:
		iv, running := intervals[cmd.id]
		if !running {
			return
		}
		iv.ticker.Stop()
		close(iv.stop)
		delete(intervals, cmd.id)
	}
}

// forward relays ticks for one interval to the owner.
func (s *Service) forward(ctx context.Context, id string, iv *interval) {
	for {
		select {
		case <-iv.stop:
			return
		case <-ctx.Done():
			return
		case <-iv.ticker.C:
			select {
			case s.ticks <- id:
			case <-iv.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}
