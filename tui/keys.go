package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle      key.Binding
	Next        key.Binding
	Previous    key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	VolumeUp    key.Binding
	VolumeDown  key.Binding
	Mute        key.Binding
	Dislike     key.Binding
	Share       key.Binding
	Queue       key.Binding
	Config      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle:      key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		Next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Previous:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous")),
		SeekBack:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
		SeekForward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
		VolumeUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Mute:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		Dislike:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dislike")),
		Share:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "share")),
		Queue:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "queue")),
		Config:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "settings")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Previous, k.Dislike, k.Queue, k.Config, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Next, k.Previous, k.SeekBack, k.SeekForward},
		{k.VolumeUp, k.VolumeDown, k.Mute},
		{k.Dislike, k.Share, k.Queue, k.Config},
		{k.Help, k.Quit},
	}
}
