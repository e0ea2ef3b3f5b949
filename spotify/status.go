package spotify

import (
	"fmt"

	"jucket/spotify/model"
)

// NowPlaying summarizes snap for the CLI and the MCP tool.
func NowPlaying(snap *model.Snapshot, disliked bool) model.NowPlayingStatus {
	if snap == nil || snap.Current == nil {
		return model.NowPlayingStatus{Status: "stopped"}
	}

	status := "playing"
	if snap.Paused {
		status = "paused"
	}

	t := snap.Current
	display := t.Name
	if artists := t.ArtistNames(", "); artists != "" {
		display += " by " + artists
	}

	return model.NowPlayingStatus{
		Status:   status,
		Track:    t,
		Context:  snap.Context,
		Position: formatDuration(snap.PositionMs),
		Duration: formatDuration(snap.DurationMs),
		Disliked: disliked,
		Display:  display,
	}
}

func formatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
