package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"jucket/config"
)

// Pane identifies a page of the config panel.
type Pane int

const (
	PaneGeneral Pane = iota
	PanePlay
	PaneDislike
	PaneTheme
	paneCount
)

// paneDef binds a pane to its behavior.
type paneDef struct {
	title string
	// items is the number of focusable rows above the buttons
	items func(p *configPanel) int
	view  func(p *configPanel, s Styles, width int) []string
	key   func(p *configPanel, msg tea.KeyMsg) tea.Cmd
}

var paneDefs [paneCount]paneDef

func init() {
	paneDefs = [paneCount]paneDef{
		PaneGeneral: {title: "General", items: generalItems, view: generalView, key: generalKey},
		PanePlay:    {title: "Play", items: playItems, view: playView, key: playKey},
		PaneDislike: {title: "Dislike", items: dislikeItems, view: dislikeView, key: dislikeKey},
		PaneTheme:   {title: "Theme", items: themeItems, view: themeView, key: themeKey},
	}
}

func (p Pane) String() string {
	if p < 0 || p >= paneCount {
		return "unknown"
	}
	return paneDefs[p].title
}

// panelAction is what the panel asks its owner to do.
type panelAction int

const (
	panelNone panelAction = iota
	panelCancel
	panelOK
	panelApply
)

var buttons = []struct {
	label  string
	action panelAction
}{
	{"Cancel", panelCancel},
	{"OK", panelOK},
	{"Apply", panelApply},
}

type configPanel struct {
	pane   Pane
	focus  int
	button int

	draft config.Config
	css   textarea.Model

	filter   textinput.Model
	dislikes dislikeList
	store    DislikeStore
	pageSize int
}

func newConfigPanel(cfg config.Config, store DislikeStore, pageSize int) *configPanel {
	css := textarea.New()
	css.Placeholder = ".track-name { color: #1db954; font-weight: bold }"
	css.ShowLineNumbers = false
	css.CharLimit = 0
	css.SetHeight(6)
	css.SetValue(cfg.CustomCSS)

	filter := textinput.New()
	filter.Placeholder = "Filter by name"
	filter.CharLimit = 128
	filter.Prompt = "Filter: "

	return &configPanel{
		draft:    cfg,
		css:      css,
		filter:   filter,
		store:    store,
		pageSize: pageSize,
	}
}

func (p *configPanel) def() paneDef {
	return paneDefs[p.pane]
}

func (p *configPanel) onButtons() bool {
	return p.focus >= p.def().items(p)
}

// Draft returns the edited settings.
func (p *configPanel) Draft() config.Config {
	cfg := p.draft
	cfg.CustomCSS = p.css.Value()
	return cfg
}

// SwitchPane shows pane and returns the command loading its data.
func (p *configPanel) SwitchPane(pane Pane) tea.Cmd {
	p.css.Blur()
	p.filter.Blur()
	p.pane = pane
	p.focus = 0
	return p.focusChanged(true)
}

// focusChanged moves keyboard focus to the widget under p.focus. entered is
// set when the pane was just opened.
func (p *configPanel) focusChanged(entered bool) tea.Cmd {
	p.css.Blur()
	p.filter.Blur()

	var cmds []tea.Cmd
	switch {
	case p.pane == PaneTheme && p.focus == themeCSSItem:
		cmds = append(cmds, p.css.Focus())
	case p.pane == PaneDislike && p.focus == 0:
		cmds = append(cmds, p.filter.Focus())
	}
	if entered && p.pane == PaneDislike {
		cmds = append(cmds, p.reloadDislikes())
	}
	return tea.Batch(cmds...)
}

// Update handles a message while the panel is open.
func (p *configPanel) Update(msg tea.Msg) (panelAction, tea.Cmd) {
	switch msg := msg.(type) {
	case dislikesPageMsg:
		p.dislikes.apply(msg, p.filter.Value())
		return panelNone, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+s":
			return panelOK, nil
		case "tab":
			return panelNone, p.SwitchPane((p.pane + 1) % paneCount)
		case "shift+tab":
			return panelNone, p.SwitchPane((p.pane + paneCount - 1) % paneCount)
		case "esc":
			if p.pane == PaneTheme && p.focus == themeCSSItem {
				p.focus = themeItems(p)
				return panelNone, p.focusChanged(false)
			}
			return panelCancel, nil
		}

		if p.onButtons() {
			return p.buttonKey(msg)
		}
		return panelNone, p.def().key(p, msg)
	}

	// Cursor blink and other widget messages
	var cmd tea.Cmd
	if p.css.Focused() {
		p.css, cmd = p.css.Update(msg)
	} else if p.filter.Focused() {
		p.filter, cmd = p.filter.Update(msg)
	}
	return panelNone, cmd
}

func (p *configPanel) buttonKey(msg tea.KeyMsg) (panelAction, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		if p.button > 0 {
			p.button--
		}
	case "right", "l":
		if p.button < len(buttons)-1 {
			p.button++
		}
	case "up", "k":
		if p.focus > 0 {
			p.focus--
			return panelNone, p.focusChanged(false)
		}
	case "enter", " ":
		return buttons[p.button].action, nil
	}
	return panelNone, nil
}

// moveFocus handles up/down for panes of plain rows.
func (p *configPanel) moveFocus(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if p.focus > 0 {
			p.focus--
		}
		return true, p.focusChanged(false)
	case "down", "j":
		if p.focus < p.def().items(p) {
			p.focus++
		}
		return true, p.focusChanged(false)
	}
	return false, nil
}

func isActivate(msg tea.KeyMsg) bool {
	s := msg.String()
	return s == "enter" || s == " " || s == "x"
}

// View renders the panel.
func (p *configPanel) View(s Styles, width int) string {
	var tabs []string
	for pane := Pane(0); pane < paneCount; pane++ {
		if pane == p.pane {
			tabs = append(tabs, s.ActiveTab.Render(pane.String()))
		} else {
			tabs = append(tabs, s.Tab.Render(pane.String()))
		}
	}

	inner := max(width-4, 10)
	lines := []string{strings.Join(tabs, " "), ""}
	lines = append(lines, p.def().view(p, s, inner)...)
	lines = append(lines, "", p.viewButtons(s))
	lines = append(lines, s.Subtle.Render(truncate("tab: next page · ↑/↓: move · enter: select · ctrl+s: OK · esc: cancel", inner)))

	return s.Panel.Width(inner).Render(strings.Join(lines, "\n"))
}

func (p *configPanel) viewButtons(s Styles) string {
	var out []string
	for i, b := range buttons {
		label := "[ " + b.label + " ]"
		if p.onButtons() && i == p.button {
			out = append(out, s.Cursor.Render(label))
		} else {
			out = append(out, s.Muted.Render(label))
		}
	}
	return strings.Join(out, "  ")
}

func (p *configPanel) row(s Styles, index int, text string) string {
	if p.focus == index {
		return s.Cursor.Render("› " + text)
	}
	return "  " + text
}

func checkbox(on bool, label string) string {
	if on {
		return "[x] " + label
	}
	return "[ ] " + label
}

func radio(on bool, label string) string {
	if on {
		return "(•) " + label
	}
	return "( ) " + label
}

// General pane

func generalItems(*configPanel) int { return 1 }

func generalView(p *configPanel, s Styles, _ int) []string {
	return []string{
		p.row(s, 0, checkbox(p.draft.AutoAuth, "Open the Spotify login page automatically")),
	}
}

func generalKey(p *configPanel, msg tea.KeyMsg) tea.Cmd {
	if ok, cmd := p.moveFocus(msg); ok {
		return cmd
	}
	if isActivate(msg) && p.focus == 0 {
		p.draft.AutoAuth = !p.draft.AutoAuth
	}
	return nil
}

// Play pane

func playItems(*configPanel) int { return 2 }

func playView(p *configPanel, s Styles, _ int) []string {
	return []string{
		p.row(s, 0, checkbox(p.draft.AutoSkip, "Skip disliked tracks automatically")),
		p.row(s, 1, checkbox(p.draft.SkipAtDislike, "Skip a track when disliking it")),
	}
}

func playKey(p *configPanel, msg tea.KeyMsg) tea.Cmd {
	if ok, cmd := p.moveFocus(msg); ok {
		return cmd
	}
	if !isActivate(msg) {
		return nil
	}
	switch p.focus {
	case 0:
		p.draft.AutoSkip = !p.draft.AutoSkip
	case 1:
		p.draft.SkipAtDislike = !p.draft.SkipAtDislike
	}
	return nil
}

// Theme pane

var themeCSSItem = len(config.Themes)

func themeItems(*configPanel) int { return len(config.Themes) + 1 }

func themeView(p *configPanel, s Styles, width int) []string {
	lines := make([]string, 0, len(config.Themes)+3)
	for i, t := range config.Themes {
		lines = append(lines, p.row(s, i, radio(p.draft.Theme == t, themeLabel(t))))
	}
	p.css.SetWidth(max(width-2, 10))
	lines = append(lines, "", p.row(s, themeCSSItem, "Custom style sheet"), p.css.View())
	return lines
}

func themeLabel(t config.Theme) string {
	switch t {
	case config.ThemeLight:
		return "Light"
	case config.ThemeDark:
		return "Dark"
	default:
		return "Follow the terminal"
	}
}

func themeKey(p *configPanel, msg tea.KeyMsg) tea.Cmd {
	if p.focus == themeCSSItem {
		var cmd tea.Cmd
		p.css, cmd = p.css.Update(msg)
		return cmd
	}
	if ok, cmd := p.moveFocus(msg); ok {
		return cmd
	}
	if isActivate(msg) && p.focus < len(config.Themes) {
		p.draft.Theme = config.Themes[p.focus]
	}
	return nil
}
