package tui

import (
	"jucket/config"
	"jucket/database"
	"jucket/spotify/model"
)

type snapshotMsg struct{ snap *model.Snapshot }

type tickMsg struct{}

// dislikeMsg carries the dislike state of the playing track.
type dislikeMsg struct {
	uri      string
	disliked bool
}

type configMsg struct {
	cfg   config.Config
	theme config.Theme
}

type statusMsg string

type errMsg struct{ err error }

// dislikesPageMsg delivers dislike list rows. With reset the rows replace
// the list, otherwise they are appended.
type dislikesPageMsg struct {
	filter  string
	entries []database.Entity
	page    int
	more    bool
	reset   bool
	err     error
}

// configSavedMsg reports a save from the config panel.
type configSavedMsg struct {
	cfg   config.Config
	theme config.Theme
	err   error
}

// seekDoneMsg reports a finished seek command.
type seekDoneMsg struct{ err error }
