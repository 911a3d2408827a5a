package waterfall

import (
	"sync"
	"time"
)

// Token identifies a scheduled callback.
type Token uint64

// Scheduler runs callbacks after a delay. Cancel on a fired or unknown
// token is a no-op.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Token
	Cancel(t Token)
}

// ClockScheduler is a Scheduler backed by time.AfterFunc. Callbacks run on
// timer goroutines.
type ClockScheduler struct {
	mu     sync.Mutex
	next   Token
	timers map[Token]*time.Timer
}

func NewClockScheduler() *ClockScheduler {
	return &ClockScheduler{timers: make(map[Token]*time.Timer)}
}

func (s *ClockScheduler) Schedule(d time.Duration, fn func()) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	tok := s.next
	s.timers[tok] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[tok]
		delete(s.timers, tok)
		s.mu.Unlock()
		if live {
			fn()
		}
	})
	return tok
}

func (s *ClockScheduler) Cancel(tok Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[tok]; ok {
		t.Stop()
		delete(s.timers, tok)
	}
}

// debouncer is a clear-and-reschedule timer slot. The generation is
// checked again under the engine lock when the callback runs, so a
// callback that lost a race with reset never acts.
type debouncer struct {
	delay time.Duration
	tok   Token
	gen   uint64
	armed bool
}

// reset cancels the pending callback and schedules fn(gen). Callers hold
// the engine lock.
func (d *debouncer) reset(s Scheduler, fn func(gen uint64)) {
	d.stop(s)
	d.gen++
	gen := d.gen
	d.tok = s.Schedule(d.delay, func() { fn(gen) })
	d.armed = true
}

// claim reports whether gen is still the live generation and disarms the
// slot. Callers hold the engine lock.
func (d *debouncer) claim(gen uint64) bool {
	if !d.armed || d.gen != gen {
		return false
	}
	d.armed = false
	return true
}

func (d *debouncer) stop(s Scheduler) {
	if d.armed {
		s.Cancel(d.tok)
		d.armed = false
	}
}
