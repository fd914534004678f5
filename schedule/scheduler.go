// Package schedule arms a single timer that triggers an access-token refresh
// shortly before the token expires.
package schedule

import (
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/internal/clock"
)

// DefaultBuffer is how long before expiry the refresh fires.
const DefaultBuffer = 5 * time.Minute

// Scheduler keeps at most one armed timer. Arming always cancels the previous
// timer first. A firing runs the callback once and never re-arms by itself.
type Scheduler struct {
	mu       sync.Mutex
	clock    clock.Clock
	buffer   time.Duration
	fire     func()
	timer    clock.Timer
	gen      uint64
	deadline time.Time
}

// New returns a scheduler that calls fire buffer before each armed expiry.
func New(clk clock.Clock, buffer time.Duration, fire func()) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if buffer < 0 {
		buffer = DefaultBuffer
	}
	return &Scheduler{
		clock:  clk,
		buffer: buffer,
		fire:   fire,
	}
}

// Arm cancels any armed timer and schedules a refresh at expiry - buffer. When
// that instant is not in the future nothing is armed: the token is already
// stale and the next authenticated use refreshes it instead.
func (s *Scheduler) Arm(expiry time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	delay := expiry.Sub(s.clock.Now()) - s.buffer
	if delay <= 0 {
		return delay, false
	}

	s.gen++
	gen := s.gen
	s.deadline = s.clock.Now().Add(delay)
	s.timer = s.clock.AfterFunc(delay, func() { s.onFire(gen) })
	return delay, true
}

// Cancel stops the armed timer, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.stopLocked()
	s.mu.Unlock()
}

// Armed reports whether a timer is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Deadline returns the instant the armed timer fires.
func (s *Scheduler) Deadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer == nil {
		return time.Time{}, false
	}
	return s.deadline, true
}

func (s *Scheduler) onFire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.deadline = time.Time{}
	fire := s.fire
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
	// Invalidate a firing that already left the clock but has not taken the lock.
	s.gen++
}
