package dropzone

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueuer struct {
	queued  []string
	started []string
	err     error
}

func (f *fakeQueuer) AddToQueue(_ context.Context, uri string) error {
	f.queued = append(f.queued, uri)
	return f.err
}

func (f *fakeQueuer) PlayContext(_ context.Context, uri string) error {
	f.started = append(f.started, uri)
	return f.err
}

func TestDrop(t *testing.T) {
	const playing = "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M"

	tests := []struct {
		name        string
		text        string
		wantAction  Action
		wantQueued  []string
		wantStarted []string
	}{
		{
			name:       "web track link",
			text:       "https://open.spotify.com/track/abc123",
			wantAction: Queued,
			wantQueued: []string{"spotify:track:abc123"},
		},
		{
			name:       "native track uri",
			text:       "spotify:track:abc123",
			wantAction: Queued,
			wantQueued: []string{"spotify:track:abc123"},
		},
		{
			name:        "album link",
			text:        "https://open.spotify.com/intl-fr/album/1DFixLWuPkv3KT3TnV35m3?si=x",
			wantAction:  ContextStarted,
			wantStarted: []string{"spotify:album:1DFixLWuPkv3KT3TnV35m3"},
		},
		{
			name:        "artist uri",
			text:        "spotify:artist:0OdUWJ0sBjDrqHygGUXeCF",
			wantAction:  ContextStarted,
			wantStarted: []string{"spotify:artist:0OdUWJ0sBjDrqHygGUXeCF"},
		},
		{
			name:       "current context as uri",
			text:       playing,
			wantAction: Ignored,
		},
		{
			name:       "current context as web link",
			text:       "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantAction: Ignored,
		},
		{
			name:       "plain text",
			text:       "some words",
			wantAction: Ignored,
		},
		{
			name:       "unsupported kind",
			text:       "https://open.spotify.com/episode/xyz",
			wantAction: Ignored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueuer{}
			res, err := NewHandler(q, nil).Drop(context.Background(), tt.text, playing)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, res.Action)
			assert.Equal(t, tt.wantQueued, q.queued)
			assert.Equal(t, tt.wantStarted, q.started)
		})
	}
}

func TestDropWithoutContext(t *testing.T) {
	q := &fakeQueuer{}
	res, err := NewHandler(q, nil).Drop(context.Background(), "spotify:album:a", "")
	require.NoError(t, err)
	assert.Equal(t, ContextStarted, res.Action)
}

func TestDropCommandFailure(t *testing.T) {
	q := &fakeQueuer{err: errors.New("no active device")}
	res, err := NewHandler(q, nil).Drop(context.Background(), "spotify:track:abc", "")
	assert.Error(t, err)
	assert.Equal(t, Ignored, res.Action)
	assert.Equal(t, "spotify:track:abc", res.URI)
}

func TestParse(t *testing.T) {
	_, err := Parse("nope")
	assert.ErrorIs(t, err, ErrUnrecognized)

	u, err := Parse(" https://open.spotify.com/track/abc123 \n")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:abc123", u.String())
	assert.Equal(t, "queued", Queued.String())
}
