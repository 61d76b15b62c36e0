package overlay

import "time"

// CommentID uniquely identifies a comment within a store.
type CommentID string

// SessionID identifies one overlay session (one playback of one video).
type SessionID string

// Mode selects how a comment is presented.
type Mode int

// Wire values for the supported presentation modes.
const (
	ModeScroll      Mode = 1
	ModeBottomFixed Mode = 4
	ModeTopFixed    Mode = 5
)

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeScroll, ModeBottomFixed, ModeTopFixed:
		return true
	}
	return false
}

func (m Mode) String() string {
	switch m {
	case ModeScroll:
		return "scroll"
	case ModeBottomFixed:
		return "bottom"
	case ModeTopFixed:
		return "top"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a comment.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateExpired State = "expired"
)

// Metadata is carried through from ingestion and never interpreted.
type Metadata struct {
	Timestamp  int64  `json:"timestamp" yaml:"timestamp"`
	PoolID     int    `json:"pool_id" yaml:"pool_id"`
	SenderHash string `json:"sender_hash" yaml:"sender_hash"`
	OriginID   string `json:"origin_id" yaml:"origin_id"`
}

// Comment is the immutable payload of a timed overlay.
// Lifecycle state lives in the Scheduler, not here.
type Comment struct {
	ID       CommentID `json:"id" yaml:"id"`
	DueTime  float64   `json:"due_time" yaml:"due_time"`
	Mode     Mode      `json:"mode" yaml:"mode"`
	FontSize int       `json:"font_size" yaml:"font_size"`
	Color    int       `json:"color" yaml:"color"`
	Text     string    `json:"text" yaml:"text"`
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
}

// CommentStatus pairs a comment with its current lifecycle state.
type CommentStatus struct {
	Comment `yaml:",inline"`
	State   State `json:"state" yaml:"state"`
}

// Viewport is the size of the presentation container in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Slot names where a placement anchors.
type Slot string

const (
	SlotScroll Slot = "scroll"
	SlotTop    Slot = "top"
	SlotBottom Slot = "bottom"
)

// Placement tells the renderer where an instance goes.
// For scroll comments the renderer animates X from StartX to EndX. Y is
// measured from the top edge, or from the bottom edge for SlotBottom.
// Lane is -1 unless a lane allocator chose it.
type Placement struct {
	Slot   Slot    `json:"slot" yaml:"slot"`
	Y      float64 `json:"y" yaml:"y"`
	StartX float64 `json:"start_x" yaml:"start_x"`
	EndX   float64 `json:"end_x" yaml:"end_x"`
	Lane   int     `json:"lane" yaml:"lane"`
}

// ActivateEvent instructs the renderer to show a comment.
type ActivateEvent struct {
	Comment      Comment       `json:"comment" yaml:"comment"`
	Placement    Placement     `json:"placement" yaml:"placement"`
	ExpiresAfter time.Duration `json:"expires_after" yaml:"expires_after"`
}

// DeactivateEvent instructs the renderer to remove one comment instance.
type DeactivateEvent struct {
	ID CommentID `json:"id" yaml:"id"`
}
