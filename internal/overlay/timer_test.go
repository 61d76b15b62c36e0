package overlay

import (
	"testing"
	"time"
)

func TestManualTimers(t *testing.T) {
	t.Run("fires_in_deadline_order", func(t *testing.T) {
		m := NewManualTimers()
		var fired []string
		m.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
		m.AfterFunc(time.Second, func() { fired = append(fired, "a") })
		m.AfterFunc(time.Second, func() { fired = append(fired, "b") })

		m.Advance(2 * time.Second)
		if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
			t.Fatalf("unexpected order after 2s: %v", fired)
		}
		if m.Now() != 2*time.Second {
			t.Errorf("expected now 2s, got %v", m.Now())
		}

		m.Advance(time.Second)
		if len(fired) != 3 || fired[2] != "c" {
			t.Errorf("expected c at 3s, got %v", fired)
		}
		if m.Pending() != 0 {
			t.Errorf("expected nothing pending, got %d", m.Pending())
		}
	})

	t.Run("stop_prevents_firing", func(t *testing.T) {
		m := NewManualTimers()
		fired := false
		tm := m.AfterFunc(time.Second, func() { fired = true })

		if !tm.Stop() {
			t.Error("first Stop should report true")
		}
		if tm.Stop() {
			t.Error("second Stop should report false")
		}
		m.Advance(time.Minute)
		if fired {
			t.Error("stopped timer fired")
		}
	})

	t.Run("stop_after_fire", func(t *testing.T) {
		m := NewManualTimers()
		tm := m.AfterFunc(time.Second, func() {})
		m.Advance(time.Second)
		if tm.Stop() {
			t.Error("Stop after firing should report false")
		}
	})

	t.Run("callback_can_schedule", func(t *testing.T) {
		m := NewManualTimers()
		var at []time.Duration
		m.AfterFunc(time.Second, func() {
			at = append(at, m.Now())
			m.AfterFunc(time.Second, func() { at = append(at, m.Now()) })
		})

		m.Advance(5 * time.Second)
		if len(at) != 2 || at[0] != time.Second || at[1] != 2*time.Second {
			t.Errorf("unexpected fire times: %v", at)
		}
		if m.Now() != 5*time.Second {
			t.Errorf("expected now 5s, got %v", m.Now())
		}
	})

	t.Run("callback_can_stop_sibling", func(t *testing.T) {
		m := NewManualTimers()
		fired := false
		var sibling Timer
		m.AfterFunc(time.Second, func() { sibling.Stop() })
		sibling = m.AfterFunc(time.Second, func() { fired = true })

		m.Advance(time.Second)
		if fired {
			t.Error("sibling fired after being stopped")
		}
	})
}
