package simulate

import (
	"errors"
	"testing"

	"comment-overlay/internal/overlay"
)

func comments() []overlay.Comment {
	return []overlay.Comment{
		{ID: "a", DueTime: 1, Mode: overlay.ModeTopFixed, FontSize: 25, Text: "top"},
		{ID: "b", DueTime: 2, Mode: overlay.ModeScroll, FontSize: 25, Text: "scroll"},
	}
}

func kinds(entries []Entry) []overlay.EventKind {
	out := make([]overlay.EventKind, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Kind)
	}
	return out
}

func TestRun_plays_forward(t *testing.T) {
	res, err := Run(comments(), Options{
		To:       15,
		Step:     0.5,
		Viewport: overlay.Viewport{Width: 800, Height: 450},
		Seed:     1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []struct {
		kind     overlay.EventKind
		id       overlay.CommentID
		playback float64
	}{
		{overlay.EventActivate, "a", 1},
		{overlay.EventActivate, "b", 2},
		{overlay.EventDeactivate, "a", 4},
		{overlay.EventDeactivate, "b", 12},
	}
	if len(res.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), kinds(res.Entries))
	}
	for i, w := range want {
		e := res.Entries[i]
		if e.Kind != w.kind || e.ID != w.id || e.Playback != w.playback {
			t.Errorf("entry %d: got %s %s at %v, want %s %s at %v", i, e.Kind, e.ID, e.Playback, w.kind, w.id, w.playback)
		}
	}
	if res.Entries[3].Clock != "00:12" {
		t.Errorf("expected clock 00:12, got %q", res.Entries[3].Clock)
	}
	if res.Entries[0].ExpiresAfter != 3 || res.Entries[0].Placement == nil {
		t.Errorf("unexpected fixed activation: %+v", res.Entries[0])
	}
	for _, st := range res.Final {
		if st.State != overlay.StateExpired {
			t.Errorf("%s: expected expired, got %s", st.ID, st.State)
		}
	}
}

func TestRun_seek_back_replays(t *testing.T) {
	res, err := Run(comments(), Options{
		To:    6,
		Step:  0.5,
		Seeks: []SeekAt{{At: 3, To: 0}},
		Seed:  1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var activations, clears int
	for _, e := range res.Entries {
		switch e.Kind {
		case overlay.EventActivate:
			activations++
		case overlay.EventDeactivateAll:
			clears++
		}
	}
	if activations != 4 || clears != 1 {
		t.Errorf("expected 4 activations and 1 clear, got %v", kinds(res.Entries))
	}
}

func TestRun_invalid_step(t *testing.T) {
	if _, err := Run(nil, Options{Step: 0}); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("expected ErrInvalidStep, got %v", err)
	}
}
