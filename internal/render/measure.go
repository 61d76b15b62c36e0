// Package render provides the renderer-side measurements the overlay
// scheduler needs but does not compute itself.
package render

import (
	"strings"
	"unicode"

	"comment-overlay/internal/overlay"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Measurer estimates rendered text width by scaling a fixed bitmap face to
// the comment's font size. Wide (CJK, kana, hangul, fullwidth) runes are
// counted as one em.
type Measurer struct {
	face       font.Face
	faceHeight float64
}

// NewMeasurer returns a Measurer backed by the 7x13 basic face.
func NewMeasurer() *Measurer {
	return &Measurer{face: basicfont.Face7x13, faceHeight: float64(basicfont.Face7x13.Height)}
}

// MeasureText implements overlay.TextMeasurer.
func (m *Measurer) MeasureText(c overlay.Comment) float64 {
	if c.FontSize <= 0 || c.Text == "" {
		return 0
	}
	size := float64(c.FontSize)

	var narrow strings.Builder
	wide := 0
	for _, r := range c.Text {
		if isWide(r) {
			wide++
			continue
		}
		narrow.WriteRune(r)
	}

	adv := font.MeasureString(m.face, narrow.String())
	scaled := float64(adv) / 64 * size / m.faceHeight
	return scaled + float64(wide)*size
}

func isWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) ||
		(r >= 0xFF01 && r <= 0xFF60) || (r >= 0xFFE0 && r <= 0xFFE6)
}
