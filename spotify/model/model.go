package model

import "time"

// Artist is one credited artist of a track
type Artist struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album describes the album a track belongs to
type Album struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	ImageURL string `json:"image_url,omitempty"`
}

// Track describes one playable track
type Track struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMs int      `json:"duration_ms"`
}

// ArtistNames joins the artist names with sep.
func (t Track) ArtistNames(sep string) string {
	out := ""
	for i, a := range t.Artists {
		if i > 0 {
			out += sep
		}
		out += a.Name
	}
	return out
}

// Context is the active playback source (album, playlist, artist)
type Context struct {
	URI         string `json:"uri"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Device is the Spotify Connect device currently playing
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volume_percent"`
}

// Snapshot is one observation of the player: the current track, its
// neighbours and the playback position at Timestamp.
type Snapshot struct {
	Paused     bool      `json:"paused"`
	PositionMs int       `json:"position_ms"`
	DurationMs int       `json:"duration_ms"`
	Current    *Track    `json:"current,omitempty"`
	Previous   []Track   `json:"previous"`
	Next       []Track   `json:"next"`
	Context    Context   `json:"context"`
	Device     *Device   `json:"device,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CurrentURI returns the URI of the current track, or "" when nothing plays.
func (s *Snapshot) CurrentURI() string {
	if s == nil || s.Current == nil {
		return ""
	}
	return s.Current.URI
}

// NowPlayingStatus is the summary shown by the CLI and the MCP tool
type NowPlayingStatus struct {
	Status   string  `json:"status"` // "playing", "paused", "stopped"
	Track    *Track  `json:"track,omitempty"`
	Context  Context `json:"context"`
	Position string  `json:"position"`
	Duration string  `json:"duration"`
	Disliked bool    `json:"disliked"`
	Display  string  `json:"display"`
}
