package overlay

import (
	"errors"
	"math"
	"math/rand/v2"
)

// fixedMargin is the distance in pixels between a fixed comment and the
// container edge it is anchored to.
const fixedMargin = 10.0

// ErrLanesSaturated is returned by an Allocator that has no free slot.
var ErrLanesSaturated = errors.New("all lanes are occupied")

// Allocator chooses where an activated comment is placed.
// Release is called when a comment is deactivated; Reset when every
// instance is cleared at once.
type Allocator interface {
	Place(c Comment, vp Viewport, textWidth float64) (Placement, error)
	Release(id CommentID)
	Reset()
}

// RandomAllocator places scroll comments at a uniformly random height and
// every fixed comment of a mode in the same centered slot. It never refuses
// and does not prevent overlap.
type RandomAllocator struct {
	rng *rand.Rand
}

// NewRandomAllocator returns a RandomAllocator drawing from rng.
// A nil rng uses the global source.
func NewRandomAllocator(rng *rand.Rand) *RandomAllocator {
	return &RandomAllocator{rng: rng}
}

// Place implements Allocator.Place.
func (a *RandomAllocator) Place(c Comment, vp Viewport, textWidth float64) (Placement, error) {
	if c.Mode != ModeScroll {
		return fixedPlacement(c.Mode, vp), nil
	}
	p := scrollPlacement(vp, textWidth)
	if span := vp.Height - float64(c.FontSize); span > 0 {
		p.Y = a.float64() * span
	}
	return p, nil
}

// Release implements Allocator.Release.
func (a *RandomAllocator) Release(CommentID) {}

// Reset implements Allocator.Reset.
func (a *RandomAllocator) Reset() {}

func (a *RandomAllocator) float64() float64 {
	if a.rng == nil {
		return rand.Float64()
	}
	return a.rng.Float64()
}

// LaneAllocator splits the container into a fixed number of horizontal lanes
// and gives each scroll comment the lowest-numbered free lane. When every
// lane is taken it returns ErrLanesSaturated.
type LaneAllocator struct {
	lanes    []CommentID
	occupied map[CommentID]int
}

// NewLaneAllocator returns a LaneAllocator with n lanes (at least one).
func NewLaneAllocator(n int) *LaneAllocator {
	if n < 1 {
		n = 1
	}
	return &LaneAllocator{
		lanes:    make([]CommentID, n),
		occupied: make(map[CommentID]int),
	}
}

// Place implements Allocator.Place.
func (a *LaneAllocator) Place(c Comment, vp Viewport, textWidth float64) (Placement, error) {
	if c.Mode != ModeScroll {
		return fixedPlacement(c.Mode, vp), nil
	}
	for i, holder := range a.lanes {
		if holder != "" {
			continue
		}
		a.lanes[i] = c.ID
		a.occupied[c.ID] = i

		p := scrollPlacement(vp, textWidth)
		p.Lane = i
		p.Y = float64(i) * a.laneHeight(vp)
		if limit := vp.Height - float64(c.FontSize); p.Y > limit {
			p.Y = math.Max(0, limit)
		}
		return p, nil
	}
	return Placement{}, ErrLanesSaturated
}

// Release implements Allocator.Release.
func (a *LaneAllocator) Release(id CommentID) {
	if i, ok := a.occupied[id]; ok {
		a.lanes[i] = ""
		delete(a.occupied, id)
	}
}

// Reset implements Allocator.Reset.
func (a *LaneAllocator) Reset() {
	clear(a.lanes)
	clear(a.occupied)
}

func (a *LaneAllocator) laneHeight(vp Viewport) float64 {
	if vp.Height <= 0 {
		return 0
	}
	return vp.Height / float64(len(a.lanes))
}

func scrollPlacement(vp Viewport, textWidth float64) Placement {
	width := math.Max(0, vp.Width)
	return Placement{
		Slot:   SlotScroll,
		StartX: width,
		EndX:   -(width + math.Max(0, textWidth)),
		Lane:   -1,
	}
}

func fixedPlacement(mode Mode, vp Viewport) Placement {
	p := Placement{
		Slot:   SlotTop,
		Y:      fixedMargin,
		StartX: math.Max(0, vp.Width) / 2,
		Lane:   -1,
	}
	p.EndX = p.StartX
	if mode == ModeBottomFixed {
		p.Slot = SlotBottom
	}
	return p
}
