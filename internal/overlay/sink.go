package overlay

import "sync"

// Sink receives presentation events. Calls are made while the Scheduler
// holds its lock, so implementations must not block or call back into it.
type Sink interface {
	Activate(ev ActivateEvent)
	Deactivate(ev DeactivateEvent)
	DeactivateAll()
}

// TextMeasurer reports the rendered width in pixels of a comment's text.
// It is the renderer's half of the scroll duration computation.
type TextMeasurer interface {
	MeasureText(c Comment) float64
}

// MeasurerFunc adapts a function to TextMeasurer.
type MeasurerFunc func(c Comment) float64

// MeasureText implements TextMeasurer.
func (f MeasurerFunc) MeasureText(c Comment) float64 { return f(c) }

type nopSink struct{}

func (nopSink) Activate(ActivateEvent)     {}
func (nopSink) Deactivate(DeactivateEvent) {}
func (nopSink) DeactivateAll()             {}

// EventKind tags an Event.
type EventKind string

const (
	EventActivate      EventKind = "activate"
	EventDeactivate    EventKind = "deactivate"
	EventDeactivateAll EventKind = "deactivate_all"
)

// Event is one entry of an EventLog.
type Event struct {
	Seq      uint64         `json:"seq" yaml:"seq"`
	Kind     EventKind      `json:"kind" yaml:"kind"`
	ID       CommentID      `json:"id,omitempty" yaml:"id,omitempty"`
	Activate *ActivateEvent `json:"activate,omitempty" yaml:"activate,omitempty"`
}

// EventLog is a bounded, ordered Sink that clients read by sequence number.
// When full, the oldest entries are discarded.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	next   uint64
	limit  int
}

// NewEventLog returns an EventLog retaining at most limit events.
func NewEventLog(limit int) *EventLog {
	if limit <= 0 {
		limit = 1
	}
	return &EventLog{limit: limit, next: 1}
}

// Activate implements Sink.
func (l *EventLog) Activate(ev ActivateEvent) {
	l.append(Event{Kind: EventActivate, ID: ev.Comment.ID, Activate: &ev})
}

// Deactivate implements Sink.
func (l *EventLog) Deactivate(ev DeactivateEvent) {
	l.append(Event{Kind: EventDeactivate, ID: ev.ID})
}

// DeactivateAll implements Sink.
func (l *EventLog) DeactivateAll() {
	l.append(Event{Kind: EventDeactivateAll})
}

// Since returns the retained events with Seq greater than after, in order.
func (l *EventLog) Since(after uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, 0)
	for _, ev := range l.events {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}
	return out
}

func (l *EventLog) append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Seq = l.next
	l.next++
	l.events = append(l.events, ev)
	if over := len(l.events) - l.limit; over > 0 {
		l.events = append(l.events[:0], l.events[over:]...)
	}
}
