package overlay

import (
	"sync"
	"time"
)

// Timer is a cancellable one-shot timer handle.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// TimerFactory schedules one-shot callbacks.
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealTimers schedules callbacks on the runtime timer heap.
type RealTimers struct{}

// AfterFunc implements TimerFactory.
func (RealTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualTimers is a TimerFactory driven by an explicit virtual clock.
// Callbacks run synchronously inside Advance, in deadline order.
type ManualTimers struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*manualTimer
}

type manualTimer struct {
	owner *ManualTimers
	at    time.Duration
	seq   uint64
	f     func()
	done  bool
}

// NewManualTimers returns a ManualTimers at virtual time zero.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// AfterFunc implements TimerFactory.
func (m *ManualTimers) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{owner: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Stop implements Timer.
func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	t.owner.removeLocked(t)
	return true
}

// Advance moves the virtual clock forward by d, firing every timer whose
// deadline is reached. Callbacks may schedule or stop timers.
func (m *ManualTimers) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.removeLocked(next)
		m.now = next.at
		m.mu.Unlock()

		// Run without the lock: the callback may call AfterFunc or Stop.
		next.f()
	}
}

// Now returns the virtual time elapsed since creation.
func (m *ManualTimers) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *ManualTimers) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *ManualTimers) nextDueLocked(target time.Duration) *manualTimer {
	var next *manualTimer
	for _, t := range m.pending {
		if t.at > target {
			continue
		}
		if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (m *ManualTimers) removeLocked(t *manualTimer) {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
