package overlay

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestRandomAllocator_Place(t *testing.T) {
	vp := Viewport{Width: 800, Height: 450}
	a := NewRandomAllocator(rand.New(rand.NewPCG(3, 4)))

	t.Run("scroll_within_container", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			p, err := a.Place(Comment{Mode: ModeScroll, FontSize: 25}, vp, 120)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Slot != SlotScroll || p.Lane != -1 {
				t.Fatalf("unexpected placement: %+v", p)
			}
			if p.Y < 0 || p.Y > 425 {
				t.Fatalf("y %v outside [0, 425]", p.Y)
			}
			if p.StartX != 800 || p.EndX != -920 {
				t.Fatalf("unexpected path %v -> %v", p.StartX, p.EndX)
			}
		}
	})

	t.Run("font_taller_than_container", func(t *testing.T) {
		p, _ := a.Place(Comment{Mode: ModeScroll, FontSize: 500}, vp, 0)
		if p.Y != 0 {
			t.Errorf("expected y 0, got %v", p.Y)
		}
	})

	t.Run("fixed_modes_centered", func(t *testing.T) {
		top, _ := a.Place(Comment{Mode: ModeTopFixed, FontSize: 25}, vp, 0)
		if top.Slot != SlotTop || top.Y != fixedMargin || top.StartX != 400 || top.EndX != 400 {
			t.Errorf("unexpected top placement: %+v", top)
		}
		bottom, _ := a.Place(Comment{Mode: ModeBottomFixed, FontSize: 25}, vp, 0)
		if bottom.Slot != SlotBottom || bottom.Y != fixedMargin {
			t.Errorf("unexpected bottom placement: %+v", bottom)
		}
	})

	t.Run("nil_source", func(t *testing.T) {
		p, err := NewRandomAllocator(nil).Place(Comment{Mode: ModeScroll, FontSize: 25}, vp, 0)
		if err != nil || p.Y < 0 || p.Y > 425 {
			t.Errorf("unexpected result %+v, %v", p, err)
		}
	})
}

func TestLaneAllocator(t *testing.T) {
	vp := Viewport{Width: 800, Height: 400}

	t.Run("lowest_free_lane", func(t *testing.T) {
		a := NewLaneAllocator(4)
		for i, id := range []CommentID{"a", "b", "c"} {
			p, err := a.Place(Comment{ID: id, Mode: ModeScroll, FontSize: 25}, vp, 0)
			if err != nil {
				t.Fatalf("place %s: %v", id, err)
			}
			if p.Lane != i || p.Y != float64(i)*100 {
				t.Errorf("%s: expected lane %d at %v, got %+v", id, i, float64(i)*100, p)
			}
		}

		a.Release("a")
		p, _ := a.Place(Comment{ID: "d", Mode: ModeScroll, FontSize: 25}, vp, 0)
		if p.Lane != 0 {
			t.Errorf("expected released lane 0 reused, got %d", p.Lane)
		}
	})

	t.Run("saturation", func(t *testing.T) {
		a := NewLaneAllocator(2)
		_, _ = a.Place(Comment{ID: "a", Mode: ModeScroll, FontSize: 25}, vp, 0)
		_, _ = a.Place(Comment{ID: "b", Mode: ModeScroll, FontSize: 25}, vp, 0)

		_, err := a.Place(Comment{ID: "c", Mode: ModeScroll, FontSize: 25}, vp, 0)
		if !errors.Is(err, ErrLanesSaturated) {
			t.Fatalf("expected ErrLanesSaturated, got %v", err)
		}

		// Fixed comments do not use lanes.
		if _, err := a.Place(Comment{ID: "f", Mode: ModeTopFixed, FontSize: 25}, vp, 0); err != nil {
			t.Errorf("fixed comment refused: %v", err)
		}

		a.Reset()
		if _, err := a.Place(Comment{ID: "c", Mode: ModeScroll, FontSize: 25}, vp, 0); err != nil {
			t.Errorf("expected a lane after Reset, got %v", err)
		}
	})

	t.Run("last_lane_clamped", func(t *testing.T) {
		a := NewLaneAllocator(2)
		_, _ = a.Place(Comment{ID: "a", Mode: ModeScroll, FontSize: 300}, vp, 0)
		p, _ := a.Place(Comment{ID: "b", Mode: ModeScroll, FontSize: 300}, vp, 0)
		if p.Y != 100 {
			t.Errorf("expected y clamped to 100, got %v", p.Y)
		}
	})

	t.Run("release_unknown_is_noop", func(t *testing.T) {
		a := NewLaneAllocator(0)
		a.Release("missing")
		if _, err := a.Place(Comment{ID: "a", Mode: ModeScroll, FontSize: 25}, vp, 0); err != nil {
			t.Errorf("expected the single lane to be free, got %v", err)
		}
	})
}
