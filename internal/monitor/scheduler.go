package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orwatch/orwatch/internal/logging"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 5 * time.Minute

// Scheduler owns the repeating fetch timer. It is Active (exactly one
// ticker loop) iff enabled and a credential is present, Idle otherwise.
// Enable/Disable are idempotent; an interval change while Active tears down
// the ticker and creates exactly one replacement without an immediate cycle.
// Stopping never aborts cycles already in flight.
type Scheduler struct {
	mu            sync.Mutex
	interval      time.Duration
	enabled       bool
	hasCredential bool
	cancel        context.CancelFunc

	run func(manual bool)
	log zerolog.Logger
}

// NewScheduler creates an Idle scheduler that invokes run on every tick.
func NewScheduler(interval time.Duration, run func(manual bool)) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		log:      logging.Component("scheduler"),
	}
}

// Enable requests polling. The scheduler goes Active (with an immediate
// cycle) once a credential is also present. A second Enable is a no-op.
func (s *Scheduler) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return
	}
	s.enabled = true
	s.startLocked(true)
}

// Disable cancels the timer. In-flight cycles still publish their results.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.enabled = false
	s.stopLocked()
}

// SetCredential re-derives Active/Idle from the credential presence. A
// transition to Active triggers an immediate cycle.
func (s *Scheduler) SetCredential(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasCredential == present {
		return
	}
	s.hasCredential = present
	if present {
		s.startLocked(true)
	} else {
		s.stopLocked()
	}
}

// SetInterval replaces the poll interval. While Active this recreates the
// ticker at the new interval without triggering an immediate cycle.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if interval == s.interval {
		return
	}
	s.interval = interval
	if s.cancel != nil {
		s.stopLocked()
		s.startLocked(false)
	}
}

// Reschedule tears down the current timer and creates one replacement at the
// same interval, without an immediate cycle. Used when the credential value
// (not its presence) changes. Idle schedulers are unaffected.
func (s *Scheduler) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.stopLocked()
	s.startLocked(false)
}

// Active reports whether a timer loop currently exists.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) startLocked(immediate bool) {
	if s.cancel != nil || !s.enabled || !s.hasCredential {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.log.Debug().Dur("interval", s.interval).Msg("scheduler_active")
	go s.loop(ctx, s.interval, immediate)
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.log.Debug().Msg("scheduler_idle")
}

// loop runs cycles in their own goroutines so a slow fetch never delays the
// next tick.
func (s *Scheduler) loop(ctx context.Context, interval time.Duration, immediate bool) {
	if immediate {
		go s.run(false)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.run(false)
		}
	}
}
