// Package scheduler arms deferred callbacks against the injected clock.
// Recurring triggers fire at an absolute civil-time target and re-arm for
// the following day, so scheduling drift cannot accumulate the way
// fixed-length intervals would let it.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pitchside/season-engine/chrono"
)

type TriggerScheduler struct {
	clock  *chrono.Clock
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]clockwork.Timer
	stopped bool
}

func New(clock *chrono.Clock, logger *slog.Logger) *TriggerScheduler {
	return &TriggerScheduler{
		clock:  clock,
		logger: logger,
		timers: make(map[string]clockwork.Timer),
	}
}

// Schedule arms a daily trigger at hour:minute civil time. The first firing
// is the next occurrence strictly after now. A failing or panicking callback
// is logged and the next day's occurrence is still armed.
func (s *TriggerScheduler) Schedule(kind string, hour, minute int, fn func() error) {
	s.arm(kind, hour, minute, fn)
}

func (s *TriggerScheduler) arm(kind string, hour, minute int, fn func() error) {
	now := s.clock.Now()
	next := NextOccurrence(now, hour, minute)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.timers[kind]; ok {
		old.Stop()
	}
	s.timers[kind] = s.clock.AfterFunc(next.Sub(now), func() {
		s.invoke(kind, fn)
		s.arm(kind, hour, minute, fn)
	})
	s.logger.Info("trigger armed",
		slog.String("kind", kind),
		slog.Time("next_fire", next),
	)
}

// After arms a one-shot deferred callback under key, replacing any callback
// already armed with the same key. Cancel clears it.
func (s *TriggerScheduler) After(key string, delay time.Duration, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if old, ok := s.timers[key]; ok {
		old.Stop()
	}
	var t clockwork.Timer
	t = s.clock.AfterFunc(delay, func() {
		s.invoke(key, fn)
		s.mu.Lock()
		// Only clear the key if it still refers to this timer; a replacement
		// armed between fire and cleanup must stay tracked.
		if s.timers[key] == t {
			delete(s.timers, key)
		}
		s.mu.Unlock()
	})
	s.timers[key] = t
}

// Cancel clears the deferred callback armed under key, if any.
func (s *TriggerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// Stop clears every outstanding timer. The scheduler cannot be reused.
func (s *TriggerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *TriggerScheduler) invoke(kind string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("trigger panicked", slog.String("kind", kind), slog.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		s.logger.Error("trigger failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

// NextOccurrence returns the next hour:minute in now's location strictly
// after now.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
