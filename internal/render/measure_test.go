package render

import (
	"testing"

	"comment-overlay/internal/overlay"
)

func TestMeasurer_MeasureText(t *testing.T) {
	m := NewMeasurer()

	t.Run("empty_text_is_zero", func(t *testing.T) {
		if got := m.MeasureText(overlay.Comment{FontSize: 25}); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("non_positive_font_size_is_zero", func(t *testing.T) {
		if got := m.MeasureText(overlay.Comment{Text: "hello"}); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("ascii_scales_with_font_size", func(t *testing.T) {
		// The 7x13 face advances 7px per glyph at 13px.
		got := m.MeasureText(overlay.Comment{Text: "hello", FontSize: 13})
		if got != 35 {
			t.Errorf("expected 35, got %v", got)
		}
		double := m.MeasureText(overlay.Comment{Text: "hello", FontSize: 26})
		if double != 70 {
			t.Errorf("expected 70 at double size, got %v", double)
		}
	})

	t.Run("wide_runes_are_one_em", func(t *testing.T) {
		got := m.MeasureText(overlay.Comment{Text: "弹幕", FontSize: 25})
		if got != 50 {
			t.Errorf("expected 50, got %v", got)
		}
	})

	t.Run("longer_text_is_wider", func(t *testing.T) {
		short := m.MeasureText(overlay.Comment{Text: "hi", FontSize: 25})
		long := m.MeasureText(overlay.Comment{Text: "hi there, everyone", FontSize: 25})
		if long <= short {
			t.Errorf("expected %v > %v", long, short)
		}
	})
}
