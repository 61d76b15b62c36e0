package overlay

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestSession(id SessionID, created time.Time) (*Session, *recordingSink) {
	sink := &recordingSink{}
	return &Session{
		ID:        id,
		Scheduler: NewScheduler(Config{Sink: sink, Timers: NewManualTimers()}),
		Events:    NewEventLog(8),
		CreatedAt: created,
	}, sink
}

func TestInMemorySessionRepository_Create(t *testing.T) {
	repo := NewInMemorySessionRepository()
	s, _ := newTestSession("s1", time.Time{})

	t.Run("success", func(t *testing.T) {
		if err := repo.Create(s); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, ok := repo.Get("s1")
		if !ok || got != s {
			t.Fatalf("Get: got %v, ok=%v", got, ok)
		}
		if got.CreatedAt.IsZero() {
			t.Error("CreatedAt should be stamped")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		dup, _ := newTestSession("s1", time.Time{})
		if err := repo.Create(dup); !errors.Is(err, ErrSessionExists) {
			t.Errorf("expected ErrSessionExists, got %v", err)
		}
		if repo.Count() != 1 {
			t.Errorf("expected 1 session, got %d", repo.Count())
		}
	})
}

func TestInMemorySessionRepository_Delete(t *testing.T) {
	repo := NewInMemorySessionRepository()
	s, sink := newTestSession("s1", time.Time{})
	_ = repo.Create(s)

	if err := repo.Delete("s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.Get("s1"); ok {
		t.Error("session still present after Delete")
	}
	if sink.count(EventDeactivateAll) != 1 {
		t.Error("Delete should close the scheduler")
	}
	if _, err := s.Scheduler.Load(Comment{Text: "x"}); !errors.Is(err, ErrSchedulerClosed) {
		t.Errorf("expected closed scheduler, got %v", err)
	}

	if err := repo.Delete("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestInMemorySessionRepository_IDs_creation_order(t *testing.T) {
	repo := NewInMemorySessionRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		id  SessionID
		off time.Duration
	}{
		{"c", 2 * time.Second},
		{"b", 0},
		{"a", 0},
		{"d", time.Second},
	} {
		s, _ := newTestSession(tc.id, base.Add(tc.off))
		_ = repo.Create(s)
	}

	ids := repo.IDs()
	want := []SessionID{"a", "b", "d", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], ids[i])
		}
	}
}

func TestInMemorySessionRepository_concurrent(t *testing.T) {
	repo := NewInMemorySessionRepository()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := SessionID(fmt.Sprintf("s%d", i))
			s, _ := newTestSession(id, time.Time{})
			_ = repo.Create(s)
			_, _ = repo.Get(id)
			_ = repo.IDs()
			_ = repo.Count()
		}(i)
	}
	wg.Wait()
	if repo.Count() != 50 {
		t.Errorf("expected 50 sessions, got %d", repo.Count())
	}
}
