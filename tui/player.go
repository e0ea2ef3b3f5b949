package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"jucket/spotify/model"
)

// Rows of the player view, for mouse hit testing.
const (
	controllerRow = 6
	progressRow   = 7
)

type controlAction int

const (
	controlNone controlAction = iota
	controlPrevious
	controlToggle
	controlNext
	controlMute
)

type controlButton struct {
	label  string
	action controlAction
}

func controlButtons(paused, muted bool, volume float64) []controlButton {
	toggle := "⏸"
	if paused {
		toggle = "▶"
	}
	vol := fmt.Sprintf("🔊 %3d%%", int(volume*100+0.5))
	if muted {
		vol = "🔇 mute"
	}
	return []controlButton{
		{"⏮", controlPrevious},
		{toggle, controlToggle},
		{"⏭", controlNext},
		{vol, controlMute},
	}
}

const buttonGap = "   "

// controlAt returns the button under column x of the controller row.
func controlAt(buttons []controlButton, x int) controlAction {
	col := 0
	for i, b := range buttons {
		w := lipgloss.Width(b.label)
		if x >= col && x < col+w {
			return b.action
		}
		col += w
		if i < len(buttons)-1 {
			col += len(buttonGap)
		}
	}
	return controlNone
}

func renderControls(buttons []controlButton, style lipgloss.Style) string {
	labels := make([]string, len(buttons))
	for i, b := range buttons {
		labels[i] = b.label
	}
	return style.Render(strings.Join(labels, buttonGap))
}

func contextHeader(c model.Context) string {
	if c.URI == "" {
		return "NOW PLAYING"
	}
	kind := strings.ToUpper(c.Type)
	if kind == "" {
		kind = "CONTEXT"
	}
	return "PLAYING FROM " + kind
}

func (m Model) viewPlayer() string {
	s := m.styles
	width := m.contentWidth()

	if m.snap == nil || m.snap.Current == nil {
		msg := "Nothing playing. Start Spotify on a device, or paste a Spotify link here."
		if m.snap == nil {
			msg = "Connecting to Spotify…"
		}
		lines := []string{s.Header.Render("NOW PLAYING"), "", s.Muted.Render(truncate(msg, width))}
		return strings.Join(lines, "\n")
	}

	track := m.snap.Current
	header := s.Header.Render(contextHeader(m.snap.Context))
	if d := m.snap.Context.Description; d != "" {
		header += "  " + s.ContextDescription.Render(truncate(d, width-lipgloss.Width(header)-2))
	}

	name := truncate(track.Name, width-4)
	title := s.TrackName.Render(name)
	if m.disliked && m.dislikedURI == track.URI {
		title += "  " + s.Disliked.Render("✗")
	}

	device := ""
	if m.snap.Device != nil {
		device = s.Subtle.Render(truncate("on "+m.snap.Device.Name, width))
	}

	lines := []string{
		header,
		"",
		title,
		s.ArtistsName.Render(truncate(track.ArtistNames(", "), width)),
		s.AlbumName.Render(truncate(track.Album.Name, width)),
		device,
		renderControls(controlButtons(m.isPaused(), m.muted, m.volume), s.Controller),
		renderProgressBar(m.tracker.Position(), m.tracker.Duration(), width, s.Progress),
	}
	return strings.Join(lines, "\n")
}
