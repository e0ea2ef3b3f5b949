package tui

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jucket/config"
	"jucket/database"
)

func openPanel(t *testing.T, f *fixture) Model {
	t.Helper()
	m := feed(f.model(), keyRunes("c"))
	require.NotNil(t, m.panel)
	return m
}

func TestPaneNames(t *testing.T) {
	assert.Equal(t, "General", PaneGeneral.String())
	assert.Equal(t, "Play", PanePlay.String())
	assert.Equal(t, "Dislike", PaneDislike.String())
	assert.Equal(t, "Theme", PaneTheme.String())
	assert.Equal(t, "unknown", Pane(42).String())
}

func TestPanelOKSavesAndCloses(t *testing.T) {
	f := newFixture()
	m := openPanel(t, f)
	assert.Contains(t, m.View(), "General")

	m = feed(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.True(t, m.panel.Draft().AutoAuth)

	m = feed(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, m.panel)
	require.Len(t, f.settings.saved, 1)
	assert.True(t, f.settings.saved[0].AutoAuth)
	assert.True(t, m.cfg.AutoAuth)
	assert.Equal(t, "Settings saved", m.status)
}

func TestPanelCancelDiscards(t *testing.T) {
	f := newFixture()
	m := openPanel(t, f)

	m = feed(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PanePlay, m.panel.pane)
	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.panel.Draft().AutoSkip)

	m = feed(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.panel)
	assert.Empty(t, f.settings.saved)
	assert.False(t, m.cfg.AutoSkip)
}

func TestPanelApplyKeepsOpen(t *testing.T) {
	f := newFixture()
	m := openPanel(t, f)

	// Theme pane, pick Light
	m = feed(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, PaneTheme, m.panel.pane)
	m = feed(m, tea.KeyMsg{Type: tea.KeyDown})
	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, config.ThemeLight, m.panel.Draft().Theme)

	// Into the style sheet editor, then out to the buttons
	m = feed(m, tea.KeyMsg{Type: tea.KeyDown})
	m = feed(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, themeCSSItem, m.panel.focus)
	m = feed(m, keyRunes("x"))
	m = feed(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, m.panel, "esc leaves the editor first")
	require.True(t, m.panel.onButtons())

	m = feed(m, tea.KeyMsg{Type: tea.KeyRight})
	m = feed(m, tea.KeyMsg{Type: tea.KeyRight})
	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, m.panel)
	require.Len(t, f.settings.saved, 1)
	assert.Equal(t, config.ThemeLight, f.settings.saved[0].Theme)
	assert.Equal(t, "x", f.settings.saved[0].CustomCSS)
	assert.Equal(t, config.ThemeLight, m.theme)
}

func seedStore(f *fixture, n int) {
	for i := 1; i <= n; i++ {
		f.store.entries = append(f.store.entries, database.Entity{
			Kind:      database.KindTrack,
			URI:       fmt.Sprintf("spotify:track:%d", i),
			Name:      fmt.Sprintf("Song %d", i),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Hour),
		})
	}
}

func toDislikePane(t *testing.T, f *fixture) Model {
	t.Helper()
	m := openPanel(t, f)
	m = feed(m, tea.KeyMsg{Type: tea.KeyTab})
	m = feed(m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, PaneDislike, m.panel.pane)
	return m
}

func TestDislikePanePagination(t *testing.T) {
	f := newFixture()
	seedStore(f, 3)
	m := toDislikePane(t, f)

	require.Len(t, m.panel.dislikes.entries, 2)
	assert.True(t, m.panel.dislikes.more)
	assert.Contains(t, m.View(), "Song 1")
	assert.Contains(t, m.View(), "ago")

	// filter, row 1, row 2, more
	for i := 0; i < 3; i++ {
		m = feed(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	require.Equal(t, m.panel.moreItem(), m.panel.focus)
	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Len(t, m.panel.dislikes.entries, 3)
	assert.False(t, m.panel.dislikes.more)
	assert.Equal(t, 2, m.panel.dislikes.page)
	assert.Equal(t, []int{1, 2}, f.store.finds)
}

func TestDislikePaneRemoveRefetches(t *testing.T) {
	f := newFixture()
	seedStore(f, 5)
	m := toDislikePane(t, f)

	// Load page 2
	for i := 0; i < 3; i++ {
		m = feed(m, tea.KeyMsg{Type: tea.KeyDown})
	}
	m = feed(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, m.panel.dislikes.entries, 4)
	f.store.finds = nil

	// Remove "Song 2"
	for m.panel.focus > 2 {
		m = feed(m, tea.KeyMsg{Type: tea.KeyUp})
	}
	m = feed(m, keyRunes("x"))

	assert.Equal(t, []string{"spotify:track:2"}, f.store.unset)
	assert.Equal(t, []int{1, 2}, f.store.finds, "pages 1..N are fetched again")
	require.Len(t, m.panel.dislikes.entries, 4)
	assert.Equal(t, "Song 5", m.panel.dislikes.entries[3].Name)
}

func TestDislikePaneFilterResetsPage(t *testing.T) {
	f := newFixture()
	seedStore(f, 12)
	m := toDislikePane(t, f)
	f.store.finds = nil

	m = feed(m, keyRunes("1"))
	assert.Equal(t, []int{1}, f.store.finds)
	assert.Equal(t, 1, m.panel.dislikes.page)
	for _, e := range m.panel.dislikes.entries {
		assert.Contains(t, e.Name, "1")
	}
}

func TestStaleDislikePageIgnored(t *testing.T) {
	var l dislikeList
	l.apply(dislikesPageMsg{filter: "old", entries: []database.Entity{{Name: "x"}}, page: 1, reset: true}, "new")
	assert.Empty(t, l.entries)
}
