package progression

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const saveTimeout = 5 * time.Second

// Saver writes profiles in the background so the game loop never blocks on I/O.
// It holds at most one pending state; a newer save replaces an older one that has
// not been written yet.
type Saver struct {
	store   Store
	profile string
	logger  *log.Logger

	mu      sync.Mutex
	pending *State
	runs    []RunSummary
	wake    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewSaver starts the background writer.
func NewSaver(store Store, profile string, logger *log.Logger) *Saver {
	s := &Saver{
		store:   store,
		profile: profile,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Save queues a copy of state for writing.
func (s *Saver) Save(state State) {
	c := state.Clone()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.pending = &c
	s.signal()
	s.mu.Unlock()
}

// Record queues a finished run for stores that keep a run history.
func (s *Saver) Record(r RunSummary) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.runs = append(s.runs, r)
	s.signal()
	s.mu.Unlock()
}

// signal must be called with mu held.
func (s *Saver) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close flushes pending work and stops the writer.
func (s *Saver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.wake)
	s.mu.Unlock()
	<-s.done
}

func (s *Saver) run() {
	defer close(s.done)
	for range s.wake {
		s.flush()
	}
	s.flush()
}

func (s *Saver) flush() {
	s.mu.Lock()
	pending := s.pending
	runs := s.runs
	s.pending = nil
	s.runs = nil
	s.mu.Unlock()

	if pending != nil {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.store.Save(ctx, s.profile, *pending); err != nil {
			s.logger.Error("Failed to save profile", "profile", s.profile, "err", err)
		}
		cancel()
	}

	rec, ok := s.store.(RunRecorder)
	if !ok {
		return
	}
	for _, r := range runs {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := rec.RecordRun(ctx, r); err != nil {
			s.logger.Error("Failed to record run", "run", r.RunID, "err", err)
		}
		cancel()
	}
}
