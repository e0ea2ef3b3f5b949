package spotify

import (
	"errors"
	"testing"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind URIKind
		wantID   string
		wantErr  bool
	}{
		{name: "native track", input: "spotify:track:6rqhFgbbKwnb9MLmUQDhG6", wantKind: KindTrack, wantID: "6rqhFgbbKwnb9MLmUQDhG6"},
		{name: "native playlist with user", input: "spotify:user:someone:playlist:37i9dQZF1DX", wantKind: KindPlaylist, wantID: "37i9dQZF1DX"},
		{name: "web album", input: "https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3", wantKind: KindAlbum, wantID: "1DFixLWuPkv3KT3TnV35m3"},
		{name: "web track with query", input: "https://open.spotify.com/track/abc123?si=xyz", wantKind: KindTrack, wantID: "abc123"},
		{name: "web intl segment", input: "https://open.spotify.com/intl-de/artist/0OdUWJ0sBjDrqHygGUXeCF", wantKind: KindArtist, wantID: "0OdUWJ0sBjDrqHygGUXeCF"},
		{name: "surrounding whitespace", input: "  spotify:album:XYZ \n", wantKind: KindAlbum, wantID: "XYZ"},
		{name: "first line only", input: "spotify:track:one\nspotify:track:two", wantKind: KindTrack, wantID: "one"},
		{name: "plain text", input: "hello world", wantErr: true},
		{name: "unknown kind", input: "spotify:show:abc", wantErr: true},
		{name: "other host", input: "https://example.com/track/abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseURI(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnrecognizedURI) {
					t.Fatalf("ParseURI(%q) error = %v, want ErrUnrecognizedURI", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURI(%q) unexpected error: %v", tt.input, err)
			}
			if u.Kind != tt.wantKind || u.ID != tt.wantID {
				t.Errorf("ParseURI(%q) = %+v, want kind %s id %s", tt.input, u, tt.wantKind, tt.wantID)
			}
		})
	}
}

func TestURIForms(t *testing.T) {
	u := URI{Kind: KindPlaylist, ID: "abc"}

	if got := u.String(); got != "spotify:playlist:abc" {
		t.Errorf("String() = %q", got)
	}
	if got := u.WebURL(); got != "https://open.spotify.com/playlist/abc" {
		t.Errorf("WebURL() = %q", got)
	}
	if u.IsTrack() || !u.IsContext() {
		t.Errorf("playlist should be a context, not a track")
	}

	track := URI{Kind: KindTrack, ID: "t"}
	if !track.IsTrack() || track.IsContext() {
		t.Errorf("track should be a track, not a context")
	}
}
