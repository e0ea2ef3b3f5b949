package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	filledBlock = "━"
	emptyBlock  = "─"
	knob        = "●"
)

// progressLayout is where the bar sits within its line, for mouse seeking.
type progressLayout struct {
	barStart int
	barWidth int
}

// layoutProgress computes the bar geometry for a line of width.
// Line format: "1:23 ━━━━●─────── 4:56"
func layoutProgress(positionMs, durationMs, width int) progressLayout {
	left := lipgloss.Width(formatTime(positionMs)) + 1
	right := 1 + lipgloss.Width(formatTime(durationMs))
	return progressLayout{barStart: left, barWidth: width - left - right}
}

func renderProgressBar(positionMs, durationMs, width int, style lipgloss.Style) string {
	pos, dur := formatTime(positionMs), formatTime(durationMs)
	l := layoutProgress(positionMs, durationMs, width)
	if l.barWidth < 3 {
		return pos + " / " + dur
	}

	var ratio float64
	if durationMs > 0 {
		ratio = float64(positionMs) / float64(durationMs)
	}
	filled := min(max(int(float64(l.barWidth-1)*ratio), 0), l.barWidth-1)

	bar := strings.Repeat(filledBlock, filled) + knob + strings.Repeat(emptyBlock, l.barWidth-filled-1)
	return pos + " " + style.Render(bar) + " " + dur
}

// positionAt maps a click column to a position. ok is false outside the bar.
func (l progressLayout) positionAt(x, durationMs int) (int, bool) {
	if l.barWidth < 3 || durationMs <= 0 {
		return 0, false
	}
	rel := x - l.barStart
	if rel < 0 || rel >= l.barWidth {
		return 0, false
	}
	return rel * durationMs / (l.barWidth - 1), true
}

// clampedPositionAt is positionAt for drags, which may leave the bar.
func (l progressLayout) clampedPositionAt(x, durationMs int) int {
	if l.barWidth < 3 || durationMs <= 0 {
		return 0
	}
	rel := min(max(x-l.barStart, 0), l.barWidth-1)
	return rel * durationMs / (l.barWidth - 1)
}
