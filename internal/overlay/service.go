package overlay

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultEventBufferSize is the default number of events kept per session.
const DefaultEventBufferSize = 1024

// DefaultViewport is used for sessions created without explicit dimensions.
var DefaultViewport = Viewport{Width: 800, Height: 450}

// AllocatorKind selects the placement strategy for new sessions.
type AllocatorKind string

const (
	AllocatorRandom AllocatorKind = "random"
	AllocatorLanes  AllocatorKind = "lanes"
)

// DefaultLaneCount is the number of lanes used by AllocatorLanes.
const DefaultLaneCount = 12

// Options configures every session a Service creates.
type Options struct {
	MatchWindow     float64
	SeekPolicy      SeekPolicy
	CatchUpLookback float64
	Allocator       AllocatorKind
	LaneCount       int
	Viewport        Viewport
	EventBufferSize int
	Measurer        TextMeasurer
	Observer        Observer
	Timers          TimerFactory
	// Seed makes random placement reproducible; zero uses the global source.
	Seed uint64
}

// IngestResult reports how many records an ingestion call accepted and dropped.
type IngestResult struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// Service manages overlay sessions and routes clock input to their Schedulers.
type Service struct {
	repo    SessionRepository
	opts    Options
	now     func() time.Time
	created atomic.Uint64
}

// NewService returns a Service storing sessions in repo.
// Zero-valued options fall back to package defaults.
func NewService(repo SessionRepository, opts Options) *Service {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = DefaultViewport
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = DefaultEventBufferSize
	}
	if opts.LaneCount <= 0 {
		opts.LaneCount = DefaultLaneCount
	}
	if opts.Allocator == "" {
		opts.Allocator = AllocatorRandom
	}
	return &Service{repo: repo, opts: opts, now: time.Now}
}

// CreateSession starts a new session. A nil viewport uses the configured default.
func (s *Service) CreateSession(vp *Viewport) (SessionID, error) {
	viewport := s.opts.Viewport
	if vp != nil {
		viewport = *vp
	}

	events := NewEventLog(s.opts.EventBufferSize)
	sched := NewScheduler(Config{
		MatchWindow:     s.opts.MatchWindow,
		SeekPolicy:      s.opts.SeekPolicy,
		CatchUpLookback: s.opts.CatchUpLookback,
		Viewport:        viewport,
		Allocator:       s.newAllocator(),
		Measurer:        s.opts.Measurer,
		Sink:            events,
		Timers:          s.opts.Timers,
		Observer:        s.opts.Observer,
	})

	id := SessionID(uuid.NewString())
	if err := s.repo.Create(&Session{ID: id, Scheduler: sched, Events: events, CreatedAt: s.now().UTC()}); err != nil {
		sched.Close()
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// IngestWire parses markup from r into the session's store.
func (s *Service) IngestWire(id SessionID, r io.Reader) (IngestResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return IngestResult{}, err
	}
	res, err := ParseWire(r)
	if err != nil {
		return IngestResult{}, err
	}
	return load(sess, res)
}

// IngestManual parses time,mode,color,text lines from r into the session's store.
func (s *Service) IngestManual(id SessionID, r io.Reader) (IngestResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return IngestResult{}, err
	}
	res, err := ParseManual(r, s.now())
	if err != nil {
		return IngestResult{}, err
	}
	return load(sess, res)
}

// Tick advances the session's clock to currentTime.
func (s *Service) Tick(id SessionID, currentTime float64) ([]ActivateEvent, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Scheduler.Tick(currentTime), nil
}

// Seek reports a discontinuous jump of the session's clock.
func (s *Service) Seek(id SessionID, newTime float64) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.Scheduler.Seek(newTime)
	return nil
}

// SetViewport updates the session's container size.
func (s *Service) SetViewport(id SessionID, vp Viewport) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.Scheduler.SetViewport(vp)
	return nil
}

// SetEnabled turns the session's overlay on or off.
func (s *Service) SetEnabled(id SessionID, enabled bool) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.Scheduler.SetEnabled(enabled)
	return nil
}

// Events returns the session's events with sequence numbers above after.
func (s *Service) Events(id SessionID, after uint64) ([]Event, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Events.Since(after), nil
}

// Comments returns the session's comments with their lifecycle states.
func (s *Service) Comments(id SessionID) ([]CommentStatus, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.Scheduler.Snapshot(), nil
}

// ClearComments removes every comment from the session.
func (s *Service) ClearComments(id SessionID) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.Scheduler.Clear()
	return nil
}

// EndSession tears the session down and forgets it.
func (s *Service) EndSession(id SessionID) error {
	return s.repo.Delete(id)
}

// SessionCount returns the number of open sessions.
func (s *Service) SessionCount() int {
	return s.repo.Count()
}

// Close ends every open session.
func (s *Service) Close() {
	for _, id := range s.repo.IDs() {
		_ = s.repo.Delete(id)
	}
}

func (s *Service) session(id SessionID) (*Session, error) {
	sess, ok := s.repo.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) newAllocator() Allocator {
	if s.opts.Allocator == AllocatorLanes {
		return NewLaneAllocator(s.opts.LaneCount)
	}
	if s.opts.Seed == 0 {
		return NewRandomAllocator(nil)
	}
	// Each session owns its source; *rand.Rand is not safe for concurrent use.
	return NewRandomAllocator(rand.New(rand.NewPCG(s.opts.Seed, s.created.Add(1))))
}

func load(sess *Session, res ParseResult) (IngestResult, error) {
	added, err := sess.Scheduler.Load(res.Comments...)
	if err != nil {
		return IngestResult{}, fmt.Errorf("load comments: %w", err)
	}
	return IngestResult{Accepted: len(added), Dropped: res.Dropped}, nil
}
