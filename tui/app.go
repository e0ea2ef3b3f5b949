// Package tui is the terminal skin: now playing, controller, seek bar,
// queue view and the config panel.
package tui

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"jucket/config"
	"jucket/database"
	"jucket/dropzone"
	"jucket/playback"
	"jucket/position"
	"jucket/spotify"
	"jucket/spotify/model"
	"jucket/stylesheet"
)

const (
	seekStep   = 5000
	volumeStep = 0.05
)

// DislikeStore is the part of the dislike database the skin uses.
type DislikeStore interface {
	IsDisliked(ctx context.Context, track database.Track) (bool, error)
	Set(ctx context.Context, kind database.Kind, track database.Track) error
	Unset(ctx context.Context, kind database.Kind, uri string) error
	Find(ctx context.Context, limit, page int, name string) ([]database.Entity, error)
}

// Settings is the config provider.
type Settings interface {
	Current() config.Config
	Theme() config.Theme
	Save(cfg config.Config) error
	Refresh() config.Config
}

// VolumeStore persists volume and mute.
type VolumeStore interface {
	Volume() (float64, bool)
	SetVolume(v float64) error
	Muted() bool
	SetMuted(muted bool) error
}

// DislikeListener is told when the user toggles the dislike of a track.
type DislikeListener interface {
	OnDislikeToggled(ctx context.Context, track database.Track, disliked bool) bool
}

// Dropper handles pasted links.
type Dropper interface {
	Drop(ctx context.Context, text, currentContextURI string) (dropzone.Result, error)
}

// Options are the collaborators of the skin. Only Controller and Settings
// are required.
type Options struct {
	Controller playback.Controller
	Settings   Settings
	Store      DislikeStore
	Volume     VolumeStore
	Dropper    Dropper
	OnDislike  DislikeListener
	// Refresh asks the poller for a fresh snapshot after a command
	Refresh  func()
	OpenURL  func(url string) error
	PageSize int
	Logger   *zap.Logger
}

type viewMode int

const (
	viewPlayer viewMode = iota
	viewQueue
)

// Model is the root bubbletea model.
type Model struct {
	opts   Options
	keys   keyMap
	help   help.Model
	styles Styles

	cfg   config.Config
	theme config.Theme

	snap        *model.Snapshot
	tracker     *position.Tracker
	disliked    bool
	dislikedURI string
	volume      float64
	muted       bool

	mode     viewMode
	panel    *configPanel
	dragging bool

	status    string
	statusErr bool
	width     int
	height    int
}

// New creates the root model.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = database.DefaultFindLimit
	}

	cfg := opts.Settings.Current()
	theme := opts.Settings.Theme()

	m := Model{
		opts:    opts,
		keys:    defaultKeyMap(),
		help:    help.New(),
		cfg:     cfg,
		theme:   theme,
		styles:  NewStyles(theme, stylesheet.Parse(cfg.CustomCSS)),
		tracker: position.New(),
		volume:  1,
	}
	if opts.Volume != nil {
		if v, ok := opts.Volume.Volume(); ok {
			m.volume = v
		}
		m.muted = opts.Volume.Muted()
	}
	return m
}

// Init restores the saved volume and starts the position ticks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.opts.Volume != nil {
		if _, ok := m.opts.Volume.Volume(); ok || m.muted {
			cmds = append(cmds, m.setVolumeCmd())
		}
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(position.TickInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) effectiveVolume() float64 {
	if m.muted {
		return 0
	}
	return m.volume
}

func (m Model) isPaused() bool {
	return m.snap == nil || m.snap.Paused
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, nil

	case tickMsg:
		m.tracker.Tick()
		return m, tickCmd()

	case dislikeMsg:
		m.disliked, m.dislikedURI = msg.disliked, msg.uri
		return m, nil

	case configMsg:
		m.applyConfig(msg.cfg, msg.theme)
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.applyConfig(msg.cfg, msg.theme)
		m.setStatus("Settings saved")
		return m, nil

	case seekDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, m.refresh()

	case statusMsg:
		m.setStatus(string(msg))
		return m, nil

	case errMsg:
		m.setError(msg.err)
		return m, nil
	}

	if m.panel != nil {
		return m.updatePanel(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) applySnapshot(snap *model.Snapshot) {
	m.snap = snap
	if snap == nil {
		return
	}
	m.tracker.Update(snap.CurrentURI(), snap.PositionMs, snap.DurationMs, snap.Paused)
	if snap.CurrentURI() != m.dislikedURI {
		m.disliked = false
	}
}

func (m *Model) applyConfig(cfg config.Config, theme config.Theme) {
	m.cfg, m.theme = cfg, theme
	m.styles = NewStyles(theme, stylesheet.Parse(cfg.CustomCSS))
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	m.opts.Logger.Warn("Command failed", zap.Error(err))
	m.status, m.statusErr = errorText(err), true
}

func errorText(err error) string {
	switch {
	case errors.Is(err, spotify.ErrNoActiveDevice):
		return "No active Spotify device. Start playback on a device first."
	case errors.Is(err, spotify.ErrNotAuthenticated):
		return "Not logged in to Spotify. Run `jucket login`."
	default:
		return "Error: " + err.Error()
	}
}

func (m Model) refresh() tea.Cmd {
	if m.opts.Refresh == nil {
		return nil
	}
	return func() tea.Msg {
		m.opts.Refresh()
		return nil
	}
}

// command runs fn as a player command and asks for a fresh snapshot.
func (m Model) command(fn func(ctx context.Context) error) tea.Cmd {
	refresh := m.opts.Refresh
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return errMsg{err: err}
		}
		if refresh != nil {
			refresh()
		}
		return nil
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		return m, m.dropCmd(string(msg.Runes))
	}

	ctl := m.opts.Controller
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		return m, m.command(ctl.Toggle)

	case key.Matches(msg, m.keys.Next):
		return m, m.command(ctl.Next)

	case key.Matches(msg, m.keys.Previous):
		pos := m.tracker.Position()
		return m, m.command(func(ctx context.Context) error { return playback.Back(ctx, ctl, pos) })

	case key.Matches(msg, m.keys.SeekBack):
		return m, m.seekTo(m.tracker.Position() - seekStep)

	case key.Matches(msg, m.keys.SeekForward):
		return m, m.seekTo(m.tracker.Position() + seekStep)

	case key.Matches(msg, m.keys.VolumeUp):
		return m.changeVolume(volumeStep)

	case key.Matches(msg, m.keys.VolumeDown):
		return m.changeVolume(-volumeStep)

	case key.Matches(msg, m.keys.Mute):
		m.muted = !m.muted
		return m, m.setVolumeCmd()

	case key.Matches(msg, m.keys.Dislike):
		return m, m.toggleDislikeCmd()

	case key.Matches(msg, m.keys.Share):
		return m, m.shareCmd()

	case key.Matches(msg, m.keys.Queue):
		if m.mode == viewQueue {
			m.mode = viewPlayer
		} else {
			m.mode = viewQueue
		}
		return m, nil

	case key.Matches(msg, m.keys.Config):
		m.panel = newConfigPanel(m.cfg, m.opts.Store, m.opts.PageSize)
		return m, m.panel.SwitchPane(PaneGeneral)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != viewPlayer || m.snap == nil || m.snap.Current == nil {
		return m, nil
	}

	width := m.contentWidth()
	layout := layoutProgress(m.tracker.Position(), m.tracker.Duration(), width)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if msg.Y == progressRow {
			if pos, ok := layout.positionAt(msg.X, m.tracker.Duration()); ok {
				m.dragging = true
				m.tracker.BeginSeek(pos)
			}
		}
		return m, nil

	case tea.MouseActionMotion:
		if m.dragging {
			m.tracker.Drag(layout.clampedPositionAt(msg.X, m.tracker.Duration()))
		}
		return m, nil

	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			m.tracker.Drag(layout.clampedPositionAt(msg.X, m.tracker.Duration()))
			return m, m.endSeek()
		}
		if msg.Y == controllerRow {
			return m.handleControl(controlAt(controlButtons(m.isPaused(), m.muted, m.volume), msg.X))
		}
	}
	return m, nil
}

func (m Model) handleControl(action controlAction) (tea.Model, tea.Cmd) {
	ctl := m.opts.Controller
	switch action {
	case controlPrevious:
		pos := m.tracker.Position()
		return m, m.command(func(ctx context.Context) error { return playback.Back(ctx, ctl, pos) })
	case controlToggle:
		return m, m.command(ctl.Toggle)
	case controlNext:
		return m, m.command(ctl.Next)
	case controlMute:
		m.muted = !m.muted
		return m, m.setVolumeCmd()
	}
	return m, nil
}

// seekTo runs a seek as a one-step gesture so the bar moves at once.
func (m Model) seekTo(positionMs int) tea.Cmd {
	if m.snap == nil || m.snap.Current == nil {
		return nil
	}
	m.tracker.BeginSeek(positionMs)
	return m.endSeek()
}

func (m Model) endSeek() tea.Cmd {
	pos, ok := m.tracker.EndSeek()
	if !ok {
		return nil
	}
	ctl := m.opts.Controller
	return func() tea.Msg {
		return seekDoneMsg{err: ctl.Seek(context.Background(), pos)}
	}
}

func (m Model) changeVolume(delta float64) (tea.Model, tea.Cmd) {
	m.volume = math.Max(0, math.Min(1, m.volume+delta))
	m.muted = false
	return m, m.setVolumeCmd()
}

func (m Model) setVolumeCmd() tea.Cmd {
	ctl, store := m.opts.Controller, m.opts.Volume
	volume, muted, effective := m.volume, m.muted, m.effectiveVolume()
	logger := m.opts.Logger
	return func() tea.Msg {
		if store != nil {
			if err := store.SetVolume(volume); err != nil {
				logger.Warn("Failed to persist volume", zap.Error(err))
			}
			if err := store.SetMuted(muted); err != nil {
				logger.Warn("Failed to persist mute", zap.Error(err))
			}
		}
		if err := ctl.SetVolume(context.Background(), effective); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m Model) toggleDislikeCmd() tea.Cmd {
	if m.opts.Store == nil || m.snap == nil || m.snap.Current == nil {
		return nil
	}
	store, listener := m.opts.Store, m.opts.OnDislike
	track := database.Track{URI: m.snap.Current.URI, Name: m.snap.Current.Name}
	disliked := !(m.disliked && m.dislikedURI == track.URI)

	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if disliked {
			err = store.Set(ctx, database.KindTrack, track)
		} else {
			err = store.Unset(ctx, database.KindTrack, track.URI)
		}
		if err != nil {
			// Store failures leave the indicator unchanged
			return errMsg{err: err}
		}
		if listener != nil {
			listener.OnDislikeToggled(ctx, track, disliked)
		}
		return dislikeMsg{uri: track.URI, disliked: disliked}
	}
}

func (m Model) shareCmd() tea.Cmd {
	if m.snap == nil || m.snap.Current == nil || m.opts.OpenURL == nil {
		return nil
	}
	link := spotify.ShareURL(*m.snap.Current)
	open := m.opts.OpenURL
	return func() tea.Msg {
		if err := open(link); err != nil {
			return errMsg{err: err}
		}
		return statusMsg("Opened share link in the browser")
	}
}

func (m Model) dropCmd(text string) tea.Cmd {
	if m.opts.Dropper == nil {
		return nil
	}
	dropper, refresh := m.opts.Dropper, m.opts.Refresh
	contextURI := ""
	if m.snap != nil {
		contextURI = m.snap.Context.URI
	}
	return func() tea.Msg {
		res, err := dropper.Drop(context.Background(), text, contextURI)
		if err != nil {
			return errMsg{err: err}
		}
		switch res.Action {
		case dropzone.Queued:
			if refresh != nil {
				refresh()
			}
			return statusMsg("Added to queue")
		case dropzone.ContextStarted:
			if refresh != nil {
				refresh()
			}
			return statusMsg("Playing " + res.URI)
		}
		return nil
	}
}

func (m Model) updatePanel(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
		return m, tea.Quit
	}

	action, cmd := m.panel.Update(msg)
	switch action {
	case panelCancel:
		m.panel = nil
	case panelOK:
		draft := m.panel.Draft()
		m.panel = nil
		return m, tea.Batch(cmd, m.saveConfigCmd(draft))
	case panelApply:
		return m, tea.Batch(cmd, m.saveConfigCmd(m.panel.Draft()))
	}
	return m, cmd
}

func (m Model) saveConfigCmd(cfg config.Config) tea.Cmd {
	settings := m.opts.Settings
	return func() tea.Msg {
		if err := settings.Save(cfg); err != nil {
			return configSavedMsg{err: err}
		}
		saved := settings.Refresh()
		return configSavedMsg{cfg: saved, theme: settings.Theme()}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch {
	case m.panel != nil:
		body = m.panel.View(m.styles, m.contentWidth())
	case m.mode == viewQueue:
		body = m.viewQueue()
	default:
		body = m.viewPlayer()
	}

	lines := []string{body, ""}
	if m.status != "" {
		style := m.styles.Muted
		if m.statusErr {
			style = m.styles.Error
		}
		lines = append(lines, style.Render(truncate(m.status, m.contentWidth())))
	}
	if m.panel == nil {
		lines = append(lines, m.help.View(m.keys))
	}
	return strings.Join(lines, "\n")
}
