package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"jucket/config"
	"jucket/playback"
)

// Notifier forwards events from other goroutines (snapshots, config
// reloads, the auto-skip indicator) into the running program. Events sent
// before the program starts are dropped.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewNotifier creates a detached Notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

func (n *Notifier) send(msg tea.Msg) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Disliked reports the dislike state of the playing track. It matches
// autoskip.Indicator.
func (n *Notifier) Disliked(uri string, disliked bool) {
	n.send(dislikeMsg{uri: uri, disliked: disliked})
}

// ConfigChanged matches config.Listener.
func (n *Notifier) ConfigChanged(cfg config.Config, theme config.Theme) {
	n.send(configMsg{cfg: cfg, theme: theme})
}

// Run starts the skin and blocks until the user quits or ctx is done.
// Snapshots published on hub are forwarded to the view.
func Run(ctx context.Context, opts Options, hub *playback.Hub, notifier *Notifier) error {
	if notifier == nil {
		notifier = NewNotifier()
	}

	p := tea.NewProgram(New(opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	notifier.attach(p)
	defer notifier.attach(nil)

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)
	go func() {
		for {
			select {
			case <-sub.Done:
				return
			case snap := <-sub.Snapshots:
				p.Send(snapshotMsg{snap: snap})
			}
		}
	}()

	_, err := p.Run()
	return err
}
