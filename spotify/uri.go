package spotify

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnrecognizedURI is returned when text is neither an open.spotify.com
// link nor a spotify: URI of a known kind.
var ErrUnrecognizedURI = errors.New("unrecognized Spotify URI")

// URIKind is the entity type encoded in a Spotify URI.
type URIKind string

const (
	KindTrack    URIKind = "track"
	KindAlbum    URIKind = "album"
	KindArtist   URIKind = "artist"
	KindPlaylist URIKind = "playlist"
)

// URI is a parsed Spotify identifier.
type URI struct {
	Kind URIKind
	ID   string
}

var (
	webURLPattern = regexp.MustCompile(
		`^https?://open\.spotify\.com/(?:intl-[a-zA-Z-]+/)?(?:user/[^/]+/)?(track|album|artist|playlist)/([A-Za-z0-9]+)/?(?:[?#].*)?$`)
	nativeURIPattern = regexp.MustCompile(
		`^spotify:(?:user:[^:]+:)?(track|album|artist|playlist):([A-Za-z0-9]+)$`)
)

// ParseURI accepts a web URL (https://open.spotify.com/track/ID, with an
// optional intl-xx segment and query string) or a native URI
// (spotify:track:ID). Surrounding whitespace is ignored; for multi-line
// text the first line is used.
func ParseURI(text string) (URI, error) {
	s := strings.TrimSpace(text)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	for _, re := range []*regexp.Regexp{nativeURIPattern, webURLPattern} {
		if m := re.FindStringSubmatch(s); m != nil {
			return URI{Kind: URIKind(m[1]), ID: m[2]}, nil
		}
	}
	return URI{}, fmt.Errorf("%w: %q", ErrUnrecognizedURI, text)
}

// String returns the native form spotify:<kind>:<id>.
func (u URI) String() string {
	return "spotify:" + string(u.Kind) + ":" + u.ID
}

// WebURL returns the open.spotify.com link.
func (u URI) WebURL() string {
	return "https://open.spotify.com/" + string(u.Kind) + "/" + u.ID
}

// IsTrack reports whether u denotes a single track.
func (u URI) IsTrack() bool {
	return u.Kind == KindTrack
}

// IsContext reports whether u denotes an album, artist or playlist.
func (u URI) IsContext() bool {
	switch u.Kind {
	case KindAlbum, KindArtist, KindPlaylist:
		return true
	}
	return false
}
