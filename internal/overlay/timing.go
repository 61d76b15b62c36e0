package overlay

import (
	"fmt"
	"math"
	"time"
)

const (
	// scrollBaseSeconds is the traversal time for text of zero width.
	scrollBaseSeconds = 10.0
	// scrollWidthFactor is how many seconds one container-width of text adds
	// or removes from the traversal.
	scrollWidthFactor = 5.0
	// ScrollFloorSeconds is the minimum time a scroll comment is shown.
	ScrollFloorSeconds = 5.0
	// FixedSeconds is how long top and bottom comments are shown.
	FixedSeconds = 3.0
)

// ScrollSeconds returns the traversal duration of a scroll comment:
// 10 - (textWidth/containerWidth)*5, never below ScrollFloorSeconds.
// A non-positive container width yields the floor.
func ScrollSeconds(textWidth, containerWidth float64) float64 {
	if containerWidth <= 0 || math.IsNaN(containerWidth) {
		return ScrollFloorSeconds
	}
	if textWidth < 0 || math.IsNaN(textWidth) {
		textWidth = 0
	}
	return math.Max(ScrollFloorSeconds, scrollBaseSeconds-(textWidth/containerWidth)*scrollWidthFactor)
}

// DisplayDuration returns how long a comment of the given mode stays visible.
func DisplayDuration(mode Mode, textWidth, containerWidth float64) time.Duration {
	if mode == ModeScroll {
		return seconds(ScrollSeconds(textWidth, containerWidth))
	}
	return seconds(FixedSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FormatClock renders a playback position as MM:SS.
// Zero, negative and non-finite values render as 00:00.
func FormatClock(sec float64) string {
	if sec <= 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return "00:00"
	}
	mins := int(sec / 60)
	secs := int(math.Mod(sec, 60))
	return fmt.Sprintf("%02d:%02d", mins, secs)
}
