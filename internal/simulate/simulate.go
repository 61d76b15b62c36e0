// Package simulate replays a comment set against a virtual playback clock
// and records what a renderer would have been told.
package simulate

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"comment-overlay/internal/overlay"
)

// SeekAt jumps the clock to To the first time playback reaches At.
type SeekAt struct {
	At float64 `yaml:"at" json:"at"`
	To float64 `yaml:"to" json:"to"`
}

// Options configures a run.
type Options struct {
	From       float64
	To         float64
	Step       float64
	Seeks      []SeekAt
	Viewport   overlay.Viewport
	Window     float64
	SeekPolicy overlay.SeekPolicy
	Lanes      int // zero uses random placement
	Measurer   overlay.TextMeasurer
	Seed       uint64
}

// Entry is one event observed during a run. Playback is the clock position
// when it was emitted; Wall is elapsed virtual wall time.
type Entry struct {
	Playback     float64            `yaml:"playback" json:"playback"`
	Clock        string             `yaml:"clock" json:"clock"`
	Wall         float64            `yaml:"wall" json:"wall"`
	Kind         overlay.EventKind  `yaml:"kind" json:"kind"`
	ID           overlay.CommentID  `yaml:"id,omitempty" json:"id,omitempty"`
	Text         string             `yaml:"text,omitempty" json:"text,omitempty"`
	Mode         string             `yaml:"mode,omitempty" json:"mode,omitempty"`
	Placement    *overlay.Placement `yaml:"placement,omitempty" json:"placement,omitempty"`
	ExpiresAfter float64            `yaml:"expires_after,omitempty" json:"expires_after,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Entries []Entry                 `yaml:"entries" json:"entries"`
	Final   []overlay.CommentStatus `yaml:"final" json:"final"`
}

// ErrInvalidStep is returned when the step is not positive.
var ErrInvalidStep = errors.New("step must be positive")

// recorder is the Sink for a run; it stamps each event with both clocks.
type recorder struct {
	timers   *overlay.ManualTimers
	playback *float64
	entries  []Entry
}

func (r *recorder) entry(kind overlay.EventKind) Entry {
	return Entry{
		Playback: *r.playback,
		Clock:    overlay.FormatClock(*r.playback),
		Wall:     r.timers.Now().Seconds(),
		Kind:     kind,
	}
}

func (r *recorder) Activate(ev overlay.ActivateEvent) {
	e := r.entry(overlay.EventActivate)
	e.ID = ev.Comment.ID
	e.Text = ev.Comment.Text
	e.Mode = ev.Comment.Mode.String()
	p := ev.Placement
	e.Placement = &p
	e.ExpiresAfter = ev.ExpiresAfter.Seconds()
	r.entries = append(r.entries, e)
}

func (r *recorder) Deactivate(ev overlay.DeactivateEvent) {
	e := r.entry(overlay.EventDeactivate)
	e.ID = ev.ID
	r.entries = append(r.entries, e)
}

func (r *recorder) DeactivateAll() {
	r.entries = append(r.entries, r.entry(overlay.EventDeactivateAll))
}

// Run plays comments from opts.From to opts.To in steps of opts.Step,
// advancing wall time by the same step and applying seeks as they come due.
func Run(comments []overlay.Comment, opts Options) (Result, error) {
	if opts.Step <= 0 {
		return Result{}, ErrInvalidStep
	}

	timers := overlay.NewManualTimers()
	playback := opts.From
	rec := &recorder{timers: timers, playback: &playback}

	var alloc overlay.Allocator
	if opts.Lanes > 0 {
		alloc = overlay.NewLaneAllocator(opts.Lanes)
	} else {
		alloc = overlay.NewRandomAllocator(rand.New(rand.NewPCG(opts.Seed, 0)))
	}

	sched := overlay.NewScheduler(overlay.Config{
		MatchWindow: opts.Window,
		SeekPolicy:  opts.SeekPolicy,
		Viewport:    opts.Viewport,
		Allocator:   alloc,
		Measurer:    opts.Measurer,
		Sink:        rec,
		Timers:      timers,
	})
	if _, err := sched.Load(comments...); err != nil {
		return Result{}, err
	}

	seeks := slices.Clone(opts.Seeks)
	step := time.Duration(opts.Step * float64(time.Second))
	for playback <= opts.To {
		sched.Tick(playback)

		if i := dueSeek(seeks, playback); i >= 0 {
			playback = seeks[i].To
			seeks = slices.Delete(seeks, i, i+1)
			sched.Seek(playback)
			continue
		}

		playback += opts.Step
		timers.Advance(step)
	}

	res := Result{Entries: rec.entries, Final: sched.Snapshot()}
	sched.Close()
	return res, nil
}

func dueSeek(seeks []SeekAt, playback float64) int {
	for i, s := range seeks {
		if playback >= s.At {
			return i
		}
	}
	return -1
}
