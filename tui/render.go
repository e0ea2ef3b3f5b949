package tui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(sanitize(s), width, "…")
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func truncateAndPad(s string, width int) string {
	return pad(truncate(s, width), width)
}

// sanitize drops control characters that would break the layout.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func formatTime(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
