package overlay

import (
	"errors"
	"math"
	"sync"
)

// DefaultMatchWindow is the tolerance in seconds between a comment's due
// time and the clock for the comment to count as due.
const DefaultMatchWindow = 0.1

// DefaultCatchUpLookback is how far behind a seek target SeekCatchUp looks.
const DefaultCatchUpLookback = 5.0

// ErrSchedulerClosed is returned when loading into a torn-down Scheduler.
var ErrSchedulerClosed = errors.New("scheduler is closed")

// SeekPolicy controls what happens to comments due before a seek target.
type SeekPolicy string

const (
	// SeekStrand resets everything to pending and relies on the clock
	// revisiting a due time. Comments behind the target stay dormant.
	SeekStrand SeekPolicy = "strand"
	// SeekCatchUp additionally activates, on the first tick after a seek,
	// comments due within CatchUpLookback seconds before the target.
	SeekCatchUp SeekPolicy = "catch_up"
)

// Observer is notified of scheduling outcomes, typically to record metrics.
type Observer interface {
	Activated(c Comment)
	Deactivated(id CommentID)
	Seeked()
	PlacementRefused(c Comment)
}

type nopObserver struct{}

func (nopObserver) Activated(Comment)        {}
func (nopObserver) Deactivated(CommentID)    {}
func (nopObserver) Seeked()                  {}
func (nopObserver) PlacementRefused(Comment) {}

// Config holds the Scheduler's collaborators and tuning. Zero values get
// defaults: DefaultMatchWindow, SeekStrand, a RandomAllocator, real timers,
// a zero-width measurer and a sink that discards events.
type Config struct {
	MatchWindow     float64
	SeekPolicy      SeekPolicy
	CatchUpLookback float64
	Viewport        Viewport
	Allocator       Allocator
	Measurer        TextMeasurer
	Sink            Sink
	Timers          TimerFactory
	Observer        Observer
}

// expiry is the cancellable handle for one comment's expiration. A callback
// only acts if its expiry is still the one registered for the comment.
type expiry struct {
	timer Timer
}

// Scheduler drives comments through Pending, Active and Expired as the
// playback clock advances. Tick, Seek and expiration callbacks run as
// sequential turns under one lock, and every event reaches the Sink inside
// the turn that produced it.
type Scheduler struct {
	mu sync.Mutex

	window   float64
	policy   SeekPolicy
	lookback float64
	viewport Viewport
	alloc    Allocator
	measurer TextMeasurer
	sink     Sink
	timers   TimerFactory
	observer Observer

	store    *CommentStore
	states   map[CommentID]State
	expiries map[CommentID]*expiry
	// refused holds comments deferred by the allocator since the last reset,
	// so each is reported once per pass.
	refused map[CommentID]struct{}

	enabled bool
	closed  bool

	catchUp     bool
	catchUpFrom float64
}

// NewScheduler returns an empty, enabled Scheduler.
func NewScheduler(cfg Config) *Scheduler {
	s := &Scheduler{
		window:   cfg.MatchWindow,
		policy:   cfg.SeekPolicy,
		lookback: cfg.CatchUpLookback,
		viewport: cfg.Viewport,
		alloc:    cfg.Allocator,
		measurer: cfg.Measurer,
		sink:     cfg.Sink,
		timers:   cfg.Timers,
		observer: cfg.Observer,
		store:    NewCommentStore(),
		states:   make(map[CommentID]State),
		expiries: make(map[CommentID]*expiry),
		refused:  make(map[CommentID]struct{}),
		enabled:  true,
	}
	if s.window <= 0 || math.IsNaN(s.window) {
		s.window = DefaultMatchWindow
	}
	if s.policy == "" {
		s.policy = SeekStrand
	}
	if s.lookback <= 0 {
		s.lookback = DefaultCatchUpLookback
	}
	if s.alloc == nil {
		s.alloc = NewRandomAllocator(nil)
	}
	if s.measurer == nil {
		s.measurer = MeasurerFunc(func(Comment) float64 { return 0 })
	}
	if s.sink == nil {
		s.sink = nopSink{}
	}
	if s.timers == nil {
		s.timers = RealTimers{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// Load merges comments into the store as Pending and returns them as stored.
func (s *Scheduler) Load(comments ...Comment) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSchedulerClosed
	}
	added := s.store.Add(comments...)
	for _, c := range added {
		s.states[c.ID] = StatePending
	}
	return added, nil
}

// Tick activates every pending comment whose due time is within the match
// window of currentTime, in due-time order, and returns the activations.
// Repeating a tick with the same time activates nothing new.
func (s *Scheduler) Tick(currentTime float64) []ActivateEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.enabled || math.IsNaN(currentTime) || math.IsInf(currentTime, 0) {
		return nil
	}

	from, to := currentTime-s.window, currentTime+s.window
	if s.catchUp {
		from = math.Min(from, s.catchUpFrom)
		s.catchUp = false
	}

	var out []ActivateEvent
	start, end := s.store.Range(from, to)
	for i := start; i < end; i++ {
		c := s.store.At(i)
		if s.states[c.ID] != StatePending {
			continue
		}
		ev, ok := s.activateLocked(c)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Seek handles a discontinuous clock jump: it cancels every pending
// expiration, tells the sink to clear everything and resets every comment
// to Pending. No expiration scheduled before the call fires after it.
func (s *Scheduler) Seek(newTime float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.resetLocked()
	for id := range s.states {
		s.states[id] = StatePending
	}
	if s.policy == SeekCatchUp && !math.IsNaN(newTime) {
		s.catchUp = true
		s.catchUpFrom = math.Max(0, newTime-s.lookback)
	}
	s.observer.Seeked()
}

// Clear cancels every expiration, clears the sink and empties the store.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.resetLocked()
	s.store.Clear()
	clear(s.states)
	s.catchUp = false
}

// Close tears the Scheduler down. Outstanding expirations are cancelled,
// the sink is cleared once, and later calls become no-ops.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.resetLocked()
	s.closed = true
}

// SetEnabled turns activation on or off. While disabled, ticks are ignored
// and comments stay in their current state.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports whether ticks currently activate comments.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetViewport records the container size used for later placements.
func (s *Scheduler) SetViewport(vp Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = vp
}

// State returns the lifecycle state of a comment.
func (s *Scheduler) State(id CommentID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[id]
	return st, ok
}

// Snapshot returns every comment with its state, in due-time order.
func (s *Scheduler) Snapshot() []CommentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CommentStatus, 0, s.store.Len())
	for i := 0; i < s.store.Len(); i++ {
		c := s.store.At(i)
		out = append(out, CommentStatus{Comment: c, State: s.states[c.ID]})
	}
	return out
}

// ActiveCount returns the number of comments currently Active.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiries)
}

// activateLocked places c, schedules its expiration and emits the event.
// Caller must hold s.mu.
func (s *Scheduler) activateLocked(c Comment) (ActivateEvent, bool) {
	var width float64
	if c.Mode == ModeScroll {
		width = s.measurer.MeasureText(c)
	}
	placement, err := s.alloc.Place(c, s.viewport, width)
	if err != nil {
		if _, seen := s.refused[c.ID]; !seen {
			s.refused[c.ID] = struct{}{}
			s.observer.PlacementRefused(c)
		}
		return ActivateEvent{}, false
	}
	delete(s.refused, c.ID)

	ev := ActivateEvent{
		Comment:      c,
		Placement:    placement,
		ExpiresAfter: DisplayDuration(c.Mode, width, s.viewport.Width),
	}
	s.states[c.ID] = StateActive

	e := &expiry{}
	id := c.ID
	e.timer = s.timers.AfterFunc(ev.ExpiresAfter, func() { s.expire(id, e) })
	s.expiries[id] = e

	s.sink.Activate(ev)
	s.observer.Activated(c)
	return ev, true
}

func (s *Scheduler) expire(id CommentID, e *expiry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.expiries[id] != e {
		return
	}
	delete(s.expiries, id)
	s.states[id] = StateExpired
	s.alloc.Release(id)
	s.sink.Deactivate(DeactivateEvent{ID: id})
	s.observer.Deactivated(id)
}

// resetLocked cancels all expirations and clears every presented instance.
// Caller must hold s.mu.
func (s *Scheduler) resetLocked() {
	for _, e := range s.expiries {
		e.timer.Stop()
	}
	clear(s.expiries)
	clear(s.refused)
	s.alloc.Reset()
	s.sink.DeactivateAll()
}
