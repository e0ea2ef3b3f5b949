package tui

import (
	"strings"

	"jucket/spotify/model"
)

// queueRows returns the tracks shown around the current one. As in the
// browser player, the oldest previous track and the last next track are
// left out.
func queueRows(snap *model.Snapshot) (previous, next []model.Track) {
	if snap == nil {
		return nil, nil
	}
	previous = snap.Previous
	if len(previous) > 1 {
		previous = previous[1:]
	}
	next = snap.Next
	if len(next) > 1 {
		next = next[:len(next)-1]
	}
	return previous, next
}

func (m Model) viewQueue() string {
	s := m.styles
	width := m.contentWidth()
	nameWidth := width * 3 / 5
	artistWidth := width - nameWidth - 4

	row := func(marker string, t model.Track) string {
		return marker + " " + truncateAndPad(t.Name, nameWidth) + "  " + truncate(t.ArtistNames(", "), artistWidth)
	}

	lines := []string{s.Header.Render("QUEUE"), ""}
	previous, next := queueRows(m.snap)

	for _, t := range previous {
		lines = append(lines, s.Subtle.Render(row(" ", t)))
	}
	if m.snap != nil && m.snap.Current != nil {
		lines = append(lines, s.TrackName.Render(row("▶", *m.snap.Current)))
	} else {
		lines = append(lines, s.Muted.Render("  (nothing playing)"))
	}
	for _, t := range next {
		lines = append(lines, s.ArtistsName.Render(row(" ", t)))
	}

	lines = append(lines, "", s.Muted.Render(truncate(
		"Paste a Spotify link to queue a track or play an album, artist or playlist.", width)))
	return strings.Join(lines, "\n")
}
