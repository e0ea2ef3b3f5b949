package playback

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"jucket/spotify"
	"jucket/spotify/model"
)

// DefaultPollInterval is how often the player state is read.
const DefaultPollInterval = time.Second

// Poller reads the player state on an interval and publishes it to a Hub.
type Poller struct {
	source   StateSource
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger

	refresh chan struct{}
	lastErr string
}

// NewPoller creates a poller. A non-positive interval selects
// DefaultPollInterval.
func NewPoller(source StateSource, hub *Hub, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		hub:      hub,
		interval: interval,
		logger:   logger,
		refresh:  make(chan struct{}, 1),
	}
}

// Refresh asks a running poller to read the state now, typically after a
// command changed it.
func (p *Poller) Refresh() {
	select {
	case p.refresh <- struct{}{}:
	default:
	}
}

// Poll reads the state once and publishes it. On failure the hub keeps the
// previous snapshot.
func (p *Poller) Poll(ctx context.Context) (*model.Snapshot, error) {
	snap, err := p.source.CurrentState(ctx)
	if err != nil {
		// Log each distinct failure once; the player is polled every second
		if msg := err.Error(); msg != p.lastErr {
			p.lastErr = msg
			if errors.Is(err, spotify.ErrNoActiveDevice) {
				p.logger.Info("No active Spotify device")
			} else {
				p.logger.Warn("Failed to read player state", zap.Error(err))
			}
		}
		return nil, err
	}
	p.lastErr = ""

	if prev := p.hub.CurrentURI(); prev != snap.CurrentURI() {
		p.logger.Debug("Track changed",
			zap.String("from", prev),
			zap.String("to", snap.CurrentURI()))
	}
	p.hub.Publish(snap)
	return snap, nil
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll(ctx)
		case <-p.refresh:
			p.Poll(ctx)
			ticker.Reset(p.interval)
		}
	}
}
