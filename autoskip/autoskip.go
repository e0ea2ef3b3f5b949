// Package autoskip skips disliked tracks as soon as they start playing.
//
// The skip is issued after a short delay, because skipping at position 0
// is unreliable, and retried once if the track has not changed after a
// further delay. The retry is time based: it cannot tell a slow state
// update from a failed command, so a spurious second skip is possible.
package autoskip

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"jucket/clock"
	"jucket/config"
	"jucket/database"
	"jucket/spotify/model"
)

const (
	DefaultSkipDelay  = time.Second
	DefaultRetryDelay = 2500 * time.Millisecond
)

// Store answers whether a track is disliked.
type Store interface {
	IsDisliked(ctx context.Context, track database.Track) (bool, error)
}

// Skipper issues the "next track" command.
type Skipper interface {
	Next(ctx context.Context) error
}

// CurrentTrack reports the URI of the track playing now.
type CurrentTrack interface {
	CurrentURI() string
}

// Settings exposes the current configuration.
type Settings interface {
	Current() config.Config
}

// Indicator is told whether the track now playing is disliked.
type Indicator func(uri string, disliked bool)

// Decision is the outcome of evaluating a track.
type Decision int

const (
	// Unchanged: the track did not change, nothing was evaluated.
	Unchanged Decision = iota
	// Liked: not disliked.
	Liked
	// Flagged: disliked, auto-skip off; only the indicator is set.
	Flagged
	// Skipping: disliked, a skip is scheduled.
	Skipping
	// Unknown: the store lookup failed; the indicator is left alone.
	Unknown
)

func (d Decision) String() string {
	switch d {
	case Liked:
		return "liked"
	case Flagged:
		return "flagged"
	case Skipping:
		return "skipping"
	case Unknown:
		return "unknown"
	default:
		return "unchanged"
	}
}

// Coordinator evaluates track changes against the dislike store.
type Coordinator struct {
	store    Store
	skipper  Skipper
	current  CurrentTrack
	settings Settings

	clock      clock.Clock
	logger     *zap.Logger
	skipDelay  time.Duration
	retryDelay time.Duration
	indicator  Indicator

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lastURI string
	pending []clock.Timer
	closed  bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(co *Coordinator) { co.logger = l }
}

// WithDelays overrides the skip and retry delays.
func WithDelays(skip, retry time.Duration) Option {
	return func(co *Coordinator) {
		co.skipDelay = skip
		co.retryDelay = retry
	}
}

// WithIndicator registers the dislike indicator callback.
func WithIndicator(fn Indicator) Option {
	return func(co *Coordinator) { co.indicator = fn }
}

// New creates a Coordinator.
func New(store Store, skipper Skipper, current CurrentTrack, settings Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      store,
		skipper:    skipper,
		current:    current,
		settings:   settings,
		clock:      clock.Real{},
		logger:     zap.NewNop(),
		skipDelay:  DefaultSkipDelay,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// OnTrackChange evaluates track if its URI differs from the previously
// seen one.
func (c *Coordinator) OnTrackChange(ctx context.Context, track database.Track) Decision {
	c.mu.Lock()
	if track.URI == c.lastURI {
		c.mu.Unlock()
		return Unchanged
	}
	c.lastURI = track.URI
	c.mu.Unlock()

	return c.Evaluate(ctx, track)
}

// Evaluate checks track against the store and schedules a skip when it is
// disliked and auto-skip is enabled. Otherwise only the indicator is
// updated. A failed lookup is logged and changes nothing.
func (c *Coordinator) Evaluate(ctx context.Context, track database.Track) Decision {
	c.cancelPending()
	if track.URI == "" {
		c.indicate("", false)
		return Liked
	}

	disliked, err := c.store.IsDisliked(ctx, track)
	if err != nil {
		c.logger.Warn("Dislike lookup failed", zap.String("uri", track.URI), zap.Error(err))
		return Unknown
	}

	if disliked && c.settings.Current().AutoSkip {
		c.logger.Debug("Disliked track, scheduling skip",
			zap.String("uri", track.URI),
			zap.String("name", track.Name),
			zap.Duration("delay", c.skipDelay))
		c.scheduleSkip(track.URI)
		return Skipping
	}

	c.indicate(track.URI, disliked)
	if disliked {
		return Flagged
	}
	return Liked
}

// Reevaluate runs the check again for the current track, as after a config
// reload.
func (c *Coordinator) Reevaluate(ctx context.Context) Decision {
	uri := c.current.CurrentURI()

	c.mu.Lock()
	c.lastURI = uri
	c.mu.Unlock()

	return c.Evaluate(ctx, database.Track{URI: uri})
}

// ConfigListener returns a config.Listener that re-evaluates the current
// track after every reload.
func (c *Coordinator) ConfigListener() config.Listener {
	return func(config.Config, config.Theme) {
		c.Reevaluate(c.ctx)
	}
}

// OnDislikeToggled updates the indicator after the user marked or unmarked
// track. With skip_at_dislike set, disliking the playing track skips it
// right away. It reports whether a skip was issued.
func (c *Coordinator) OnDislikeToggled(ctx context.Context, track database.Track, disliked bool) bool {
	c.indicate(track.URI, disliked)
	if !disliked || !c.settings.Current().SkipAtDislike {
		return false
	}
	if track.URI != c.current.CurrentURI() {
		return false
	}

	c.logger.Debug("Skipping track on dislike", zap.String("uri", track.URI))
	if err := c.skipper.Next(ctx); err != nil {
		c.logger.Warn("Skip failed", zap.Error(err))
	}
	return true
}

// Watch evaluates every snapshot read from snapshots until ctx is done or
// the channel is closed.
func (c *Coordinator) Watch(ctx context.Context, snapshots <-chan *model.Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			track := database.Track{URI: snap.CurrentURI()}
			if snap != nil && snap.Current != nil {
				track.Name = snap.Current.Name
			}
			c.OnTrackChange(ctx, track)
		}
	}
}

// Close cancels pending skips.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancelPending()
	c.cancel()
}

func (c *Coordinator) scheduleSkip(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pending = append(c.pending, c.clock.AfterFunc(c.skipDelay, func() {
		c.skip(uri, false)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			return
		}
		c.pending = append(c.pending, c.clock.AfterFunc(c.retryDelay, func() {
			if c.current.CurrentURI() != uri {
				return
			}
			c.logger.Info("Track unchanged after skip, retrying", zap.String("uri", uri))
			c.skip(uri, true)
		}))
	}))
}

func (c *Coordinator) skip(uri string, retry bool) {
	if err := c.skipper.Next(c.ctx); err != nil {
		c.logger.Warn("Skip failed",
			zap.String("uri", uri),
			zap.Bool("retry", retry),
			zap.Error(err))
	}
}

func (c *Coordinator) cancelPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, t := range pending {
		t.Stop()
	}
}

func (c *Coordinator) indicate(uri string, disliked bool) {
	if c.indicator != nil {
		c.indicator(uri, disliked)
	}
}
