// Package spotify drives a Spotify Connect player through the Web API and
// turns its state into model.Snapshot values.
package spotify

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"jucket/spotify/model"
)

// WindowSize is how many previous and next tracks a Snapshot carries.
const WindowSize = 2

// Client issues player commands and builds snapshots.
type Client struct {
	api    *spotifyapi.Client
	cache  *CacheManager
	logger *zap.Logger
	now    func() time.Time

	// called with the latest token on Close
	saveToken func(*oauth2.Token) error

	mu           sync.Mutex
	lastTrackURI string
}

// NewClient wraps an authenticated HTTP client. Extra options are passed to
// the Web API client (tests point WithBaseURL at a local server).
func NewClient(httpClient *http.Client, logger *zap.Logger, opts ...spotifyapi.ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		api:    spotifyapi.New(httpClient, opts...),
		cache:  NewCacheManager(),
		logger: logger,
		now:    time.Now,
	}
}

// CacheStats reports how many Web API responses are cached.
func (c *Client) CacheStats() map[string]interface{} {
	return c.cache.GetCacheStats()
}

// Play resumes playback on the active device.
func (c *Client) Play(ctx context.Context) error {
	return wrap("play", c.api.Play(ctx), nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) error {
	return wrap("pause", c.api.Pause(ctx), nil)
}

// Toggle pauses when playing and resumes when paused.
func (c *Client) Toggle(ctx context.Context) error {
	state, err := c.api.PlayerState(ctx)
	if err != nil {
		return wrap("toggle", err, nil)
	}
	if state.Playing {
		return wrap("toggle", c.api.Pause(ctx), nil)
	}
	return wrap("toggle", c.api.Play(ctx), nil)
}

// Seek moves the playback position.
func (c *Client) Seek(ctx context.Context, positionMs int) error {
	if positionMs < 0 {
		positionMs = 0
	}
	return wrap("seek", c.api.Seek(ctx, positionMs), map[string]interface{}{"position_ms": positionMs})
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context) error {
	c.logger.Debug("Skipping to next track")
	return wrap("next", c.api.Next(ctx), nil)
}

// Previous goes back to the previous track.
func (c *Client) Previous(ctx context.Context) error {
	return wrap("previous", c.api.Previous(ctx), nil)
}

// SetVolume sets the device volume from a fraction in [0, 1].
func (c *Client) SetVolume(ctx context.Context, fraction float64) error {
	percent := int(math.Round(math.Max(0, math.Min(1, fraction)) * 100))
	return wrap("set volume", c.api.Volume(ctx, percent), map[string]interface{}{"percent": percent})
}

// AddToQueue appends a track to the user's queue.
func (c *Client) AddToQueue(ctx context.Context, uri string) error {
	u, err := ParseURI(uri)
	if err != nil {
		return wrap("add to queue", err, nil)
	}
	if !u.IsTrack() {
		return wrap("add to queue", ErrNotATrack, map[string]interface{}{"uri": uri})
	}

	if err := c.api.QueueSong(ctx, spotifyapi.ID(u.ID)); err != nil {
		return wrap("add to queue", err, map[string]interface{}{"uri": uri})
	}
	c.cache.Invalidate()

	c.logger.Info("Track added to queue", zap.String("uri", u.String()))
	return nil
}

// PlayContext replaces the playback context with an album, artist or playlist.
func (c *Client) PlayContext(ctx context.Context, uri string) error {
	u, err := ParseURI(uri)
	if err != nil {
		return wrap("play context", err, nil)
	}
	if !u.IsContext() {
		return wrap("play context", ErrNotAContext, map[string]interface{}{"uri": uri})
	}

	contextURI := spotifyapi.URI(u.String())
	if err := c.api.PlayOpt(ctx, &spotifyapi.PlayOptions{PlaybackContext: &contextURI}); err != nil {
		return wrap("play context", err, map[string]interface{}{"uri": uri})
	}
	c.cache.Invalidate()

	c.logger.Info("Playing context", zap.String("uri", u.String()))
	return nil
}

// Queue returns the upcoming tracks.
func (c *Client) Queue(ctx context.Context) ([]model.Track, error) {
	if tracks, ok := c.cache.Queue(); ok {
		return tracks, nil
	}

	q, err := c.api.GetQueue(ctx)
	if err != nil {
		return nil, wrap("get queue", err, nil)
	}

	tracks := make([]model.Track, 0, len(q.Items))
	for i := range q.Items {
		if t := convertFullTrack(&q.Items[i]); t != nil {
			tracks = append(tracks, *t)
		}
	}
	c.cache.SetQueue(tracks)
	return tracks, nil
}

// RecentlyPlayed returns the play history, most recent first.
func (c *Client) RecentlyPlayed(ctx context.Context) ([]model.Track, error) {
	if tracks, ok := c.cache.Recent(); ok {
		return tracks, nil
	}

	items, err := c.api.PlayerRecentlyPlayed(ctx)
	if err != nil {
		return nil, wrap("recently played", err, nil)
	}

	tracks := make([]model.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, convertSimpleTrack(item.Track))
	}
	c.cache.SetRecent(tracks)
	return tracks, nil
}

// CurrentState reads the player and assembles a Snapshot. Queue and history
// failures only leave the neighbour lists empty.
func (c *Client) CurrentState(ctx context.Context) (*model.Snapshot, error) {
	state, err := c.api.PlayerState(ctx)
	if err != nil {
		return nil, wrap("current state", err, nil)
	}

	snap := &model.Snapshot{
		Paused:     !state.Playing,
		PositionMs: int(state.Progress),
		Timestamp:  c.now(),
	}

	if state.Device.ID != "" {
		snap.Device = &model.Device{
			ID:            string(state.Device.ID),
			Name:          state.Device.Name,
			Type:          state.Device.Type,
			VolumePercent: int(state.Device.Volume),
		}
	}

	snap.Current = convertFullTrack(state.Item)
	if snap.Current == nil {
		snap.Paused = true
		return snap, nil
	}
	snap.DurationMs = snap.Current.DurationMs

	c.mu.Lock()
	if c.lastTrackURI != snap.Current.URI {
		c.lastTrackURI = snap.Current.URI
		c.cache.Invalidate()
	}
	c.mu.Unlock()

	snap.Context = c.context(ctx, state.PlaybackContext, snap.Current)

	if next, err := c.Queue(ctx); err != nil {
		c.logger.Debug("Failed to read queue", zap.Error(err))
	} else {
		snap.Next = firstN(next, WindowSize)
	}

	if recent, err := c.RecentlyPlayed(ctx); err != nil {
		c.logger.Debug("Failed to read play history", zap.Error(err))
	} else {
		prev := firstN(recent, WindowSize)
		// Oldest first, like the queue view
		for i, j := 0, len(prev)-1; i < j; i, j = i+1, j-1 {
			prev[i], prev[j] = prev[j], prev[i]
		}
		snap.Previous = prev
	}

	return snap, nil
}

func (c *Client) context(ctx context.Context, pc spotifyapi.PlaybackContext, current *model.Track) model.Context {
	out := model.Context{URI: string(pc.URI), Type: pc.Type}
	if out.URI == "" {
		return out
	}

	if name, ok := c.cache.ContextName(out.URI); ok {
		out.Description = name
		return out
	}

	u, err := ParseURI(out.URI)
	if err != nil {
		return out
	}

	var name string
	switch u.Kind {
	case KindAlbum:
		if current != nil && current.Album.URI == out.URI {
			name = current.Album.Name
		} else if album, err := c.api.GetAlbum(ctx, spotifyapi.ID(u.ID)); err == nil {
			name = album.Name
		}
	case KindPlaylist:
		if pl, err := c.api.GetPlaylist(ctx, spotifyapi.ID(u.ID)); err == nil {
			name = pl.Name
		} else {
			c.logger.Debug("Failed to read playlist name", zap.String("uri", out.URI), zap.Error(err))
		}
	case KindArtist:
		if artist, err := c.api.GetArtist(ctx, spotifyapi.ID(u.ID)); err == nil {
			name = artist.Name
		}
	}

	if name != "" {
		c.cache.SetContextName(out.URI, name)
	}
	out.Description = name
	return out
}

// Token returns the current, possibly refreshed, OAuth token.
func (c *Client) Token() (*oauth2.Token, error) {
	return c.api.Token()
}

// Close persists the latest token when the client came from Connect.
func (c *Client) Close() error {
	if c.saveToken == nil {
		return nil
	}
	tok, err := c.api.Token()
	if err != nil {
		// Clients built without an oauth2 transport have no token to keep
		return nil
	}
	return c.saveToken(tok)
}

func firstN(tracks []model.Track, n int) []model.Track {
	if len(tracks) < n {
		n = len(tracks)
	}
	out := make([]model.Track, n)
	copy(out, tracks[:n])
	return out
}
