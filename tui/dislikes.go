package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"jucket/database"
)

// dislikeList is the paginated list of the Dislike pane.
type dislikeList struct {
	entries []database.Entity
	page    int
	more    bool
	err     error
}

func (l *dislikeList) apply(msg dislikesPageMsg, filter string) {
	// Results for an older filter are stale
	if msg.filter != filter {
		return
	}
	l.err = msg.err
	if msg.err != nil {
		return
	}
	if msg.reset {
		l.entries = msg.entries
	} else {
		l.entries = append(l.entries, msg.entries...)
	}
	l.page = msg.page
	l.more = msg.more
}

// reloadDislikes restarts the list at page 1.
func (p *configPanel) reloadDislikes() tea.Cmd {
	return loadDislikesCmd(p.store, p.pageSize, p.filter.Value(), 1, 1)
}

// loadDislikesCmd fetches pages from..to and reports them as one message.
// Loading from page 1 replaces the list.
func loadDislikesCmd(store DislikeStore, pageSize int, filter string, from, to int) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		msg := dislikesPageMsg{filter: filter, page: to, reset: from == 1}
		for page := from; page <= to; page++ {
			entries, err := store.Find(ctx, pageSize, page, filter)
			if err != nil {
				msg.err = err
				return msg
			}
			msg.entries = append(msg.entries, entries...)
			msg.more = len(entries) == pageSize
		}
		return msg
	}
}

// removeDislikeCmd removes uri and re-fetches the pages loaded so far.
func removeDislikeCmd(store DislikeStore, pageSize int, filter, uri string, pages int) tea.Cmd {
	if store == nil {
		return nil
	}
	reload := loadDislikesCmd(store, pageSize, filter, 1, max(pages, 1))
	return func() tea.Msg {
		if err := store.Unset(context.Background(), database.KindTrack, uri); err != nil {
			return dislikesPageMsg{filter: filter, err: err}
		}
		return reload()
	}
}

func dislikeItems(p *configPanel) int {
	n := 1 + len(p.dislikes.entries)
	if p.dislikes.more {
		n++
	}
	return n
}

func (p *configPanel) moreItem() int {
	if !p.dislikes.more {
		return -1
	}
	return 1 + len(p.dislikes.entries)
}

func dislikeView(p *configPanel, s Styles, width int) []string {
	lines := []string{p.filter.View(), ""}

	if p.dislikes.err != nil {
		lines = append(lines, s.Error.Render(truncate("Failed to read dislikes: "+p.dislikes.err.Error(), width)))
	}
	if len(p.dislikes.entries) == 0 {
		lines = append(lines, s.Muted.Render("  No disliked tracks"))
	}

	ageWidth := 16
	nameWidth := max(width-ageWidth-4, 8)
	for i, e := range p.dislikes.entries {
		age := humanize.Time(e.CreatedAt)
		text := truncateAndPad(e.Name, nameWidth) + " " + s.Subtle.Render(truncate(age, ageWidth))
		lines = append(lines, p.row(s, i+1, text))
	}
	if idx := p.moreItem(); idx >= 0 {
		lines = append(lines, p.row(s, idx, s.Muted.Render(fmt.Sprintf("more… (page %d)", p.dislikes.page+1))))
	}
	if len(p.dislikes.entries) > 0 {
		lines = append(lines, "", s.Subtle.Render("x: remove from dislikes"))
	}
	return lines
}

func dislikeKey(p *configPanel, msg tea.KeyMsg) tea.Cmd {
	if p.focus == 0 {
		switch msg.String() {
		case "down", "enter":
			p.focus++
			return p.focusChanged(false)
		}
		before := p.filter.Value()
		var cmd tea.Cmd
		p.filter, cmd = p.filter.Update(msg)
		if p.filter.Value() != before {
			return tea.Batch(cmd, p.reloadDislikes())
		}
		return cmd
	}

	if ok, cmd := p.moveFocus(msg); ok {
		return cmd
	}

	switch {
	case p.focus == p.moreItem() && (msg.String() == "enter" || msg.String() == " "):
		return loadDislikesCmd(p.store, p.pageSize, p.filter.Value(), p.dislikes.page+1, p.dislikes.page+1)

	case p.focus >= 1 && p.focus <= len(p.dislikes.entries):
		switch msg.String() {
		case "x", "delete", "backspace":
			e := p.dislikes.entries[p.focus-1]
			if p.focus > 1 {
				p.focus--
			}
			return removeDislikeCmd(p.store, p.pageSize, p.filter.Value(), e.URI, p.dislikes.page)
		}
	}
	return nil
}
