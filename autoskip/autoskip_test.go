package autoskip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jucket/clock"
	"jucket/config"
	"jucket/database"
	"jucket/spotify/model"
)

type fakeStore struct {
	disliked map[string]bool
	err      error
}

func (f *fakeStore) IsDisliked(_ context.Context, t database.Track) (bool, error) {
	return f.disliked[t.URI], f.err
}

type fakePlayer struct {
	mu      sync.Mutex
	uri     string
	nexts   int
	advance bool // whether Next actually changes the track
	queue   []string
}

func (p *fakePlayer) Next(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nexts++
	if p.advance && len(p.queue) > 0 {
		p.uri, p.queue = p.queue[0], p.queue[1:]
	}
	return nil
}

func (p *fakePlayer) CurrentURI() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uri
}

func (p *fakePlayer) Nexts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nexts
}

type fakeSettings struct{ cfg config.Config }

func (s *fakeSettings) Current() config.Config { return s.cfg }

const (
	bad  = "spotify:track:bad"
	good = "spotify:track:good"
)

type fixture struct {
	clock    *clock.Fake
	store    *fakeStore
	player   *fakePlayer
	settings *fakeSettings
	coord    *Coordinator
	flags    map[string]bool
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		store:    &fakeStore{disliked: map[string]bool{bad: true}},
		player:   &fakePlayer{uri: bad},
		settings: &fakeSettings{cfg: cfg},
		flags:    make(map[string]bool),
	}
	f.coord = New(f.store, f.player, f.player, f.settings,
		WithClock(f.clock),
		WithIndicator(func(uri string, disliked bool) { f.flags[uri] = disliked }))
	t.Cleanup(f.coord.Close)
	return f
}

func TestSkipsDislikedTrackAfterDelay(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})
	f.player.advance = true
	f.player.queue = []string{good}

	d := f.coord.OnTrackChange(context.Background(), database.Track{URI: bad})
	assert.Equal(t, Skipping, d)

	f.clock.Advance(DefaultSkipDelay - time.Millisecond)
	assert.Equal(t, 0, f.player.Nexts(), "no skip before the delay")

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, f.player.Nexts())

	// Track changed, so the verification does not retry
	f.clock.Advance(DefaultRetryDelay)
	assert.Equal(t, 1, f.player.Nexts())
	assert.NotContains(t, f.flags, bad, "indicator is not updated when skipping")
}

func TestRetriesExactlyOnce(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})
	// Next never takes effect

	f.coord.OnTrackChange(context.Background(), database.Track{URI: bad})
	f.clock.Advance(DefaultSkipDelay)
	assert.Equal(t, 1, f.player.Nexts())

	f.clock.Advance(DefaultRetryDelay)
	assert.Equal(t, 2, f.player.Nexts())

	f.clock.Advance(time.Minute)
	assert.Equal(t, 2, f.player.Nexts(), "only one retry")
	assert.Equal(t, 0, f.clock.Pending())
}

func TestAutoSkipDisabledOnlyFlags(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: false})

	d := f.coord.OnTrackChange(context.Background(), database.Track{URI: bad})
	assert.Equal(t, Flagged, d)
	assert.True(t, f.flags[bad])

	f.clock.Advance(time.Minute)
	assert.Equal(t, 0, f.player.Nexts())
}

func TestLikedTrack(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})

	d := f.coord.OnTrackChange(context.Background(), database.Track{URI: good})
	assert.Equal(t, Liked, d)
	assert.False(t, f.flags[good])
	assert.Equal(t, 0, f.clock.Pending())
}

func TestSameTrackIsUnchanged(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})

	ctx := context.Background()
	require.Equal(t, Liked, f.coord.OnTrackChange(ctx, database.Track{URI: good}))
	assert.Equal(t, Unchanged, f.coord.OnTrackChange(ctx, database.Track{URI: good}))
}

func TestStoreFailureChangesNothing(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})
	f.store.err = errors.New("disk I/O error")

	d := f.coord.OnTrackChange(context.Background(), database.Track{URI: bad})
	assert.Equal(t, Unknown, d)
	assert.NotContains(t, f.flags, bad)
	f.clock.Advance(time.Minute)
	assert.Equal(t, 0, f.player.Nexts())
}

func TestStoreFailureOnReloadKeepsIndicator(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: false})
	ctx := context.Background()
	f.player.uri = bad

	require.Equal(t, Flagged, f.coord.OnTrackChange(ctx, database.Track{URI: bad}))
	require.True(t, f.flags[bad])

	f.store.err = errors.New("database is locked")
	f.settings.cfg.AutoSkip = true
	assert.Equal(t, Unknown, f.coord.Reevaluate(ctx))
	assert.True(t, f.flags[bad])

	f.clock.Advance(time.Minute)
	assert.Equal(t, 0, f.player.Nexts())
}

func TestTrackChangeCancelsPendingSkip(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})
	ctx := context.Background()

	f.coord.OnTrackChange(ctx, database.Track{URI: bad})
	f.player.uri = good
	f.coord.OnTrackChange(ctx, database.Track{URI: good})

	f.clock.Advance(time.Minute)
	assert.Equal(t, 0, f.player.Nexts())
}

func TestReevaluateAfterConfigReload(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: false})
	ctx := context.Background()

	assert.Equal(t, Flagged, f.coord.OnTrackChange(ctx, database.Track{URI: bad}))

	f.settings.cfg.AutoSkip = true
	f.coord.ConfigListener()(f.settings.cfg, config.ThemeDark)

	f.clock.Advance(DefaultSkipDelay)
	assert.Equal(t, 1, f.player.Nexts())
}

func TestSkipAtDislike(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		uri      string
		disliked bool
		want     bool
	}{
		{"enabled, playing track", config.Config{SkipAtDislike: true}, bad, true, true},
		{"disabled", config.Config{}, bad, true, false},
		{"undislike", config.Config{SkipAtDislike: true}, bad, false, false},
		{"not the playing track", config.Config{SkipAtDislike: true}, good, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg)
			got := f.coord.OnDislikeToggled(context.Background(), database.Track{URI: tt.uri}, tt.disliked)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.disliked, f.flags[tt.uri])
			if tt.want {
				assert.Equal(t, 1, f.player.Nexts())
			} else {
				assert.Equal(t, 0, f.player.Nexts())
			}
		})
	}
}

func TestCloseCancelsTimers(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: true})
	f.coord.OnTrackChange(context.Background(), database.Track{URI: bad})
	f.coord.Close()

	f.clock.Advance(time.Minute)
	assert.Equal(t, 0, f.player.Nexts())
}

func TestWatchEvaluatesSnapshots(t *testing.T) {
	f := newFixture(t, config.Config{AutoSkip: false})

	ch := make(chan *model.Snapshot, 3)
	ch <- &model.Snapshot{Current: &model.Track{URI: good, Name: "Good"}}
	ch <- &model.Snapshot{Current: &model.Track{URI: bad, Name: "Bad"}}
	ch <- &model.Snapshot{}
	close(ch)

	f.coord.Watch(context.Background(), ch)
	assert.False(t, f.flags[good])
	assert.True(t, f.flags[bad])
	assert.Contains(t, f.flags, "")
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "skipping", Skipping.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "unknown", Unknown.String())
}
