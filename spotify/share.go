package spotify

import (
	"net/url"
	"strings"

	"jucket/spotify/model"
)

const tweetIntentURL = "https://twitter.com/intent/tweet"

// ShareURL builds the tweet intent link for a track: its name, first
// artist and album, and the open.spotify.com link.
func ShareURL(track model.Track) string {
	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0].Name
	}

	id := track.ID
	if id == "" {
		if u, err := ParseURI(track.URI); err == nil {
			id = u.ID
		}
	}

	text := track.Name + "\r\n" + artist + " - " + track.Album.Name + "\r\n" +
		URI{Kind: KindTrack, ID: id}.WebURL()
	return tweetIntentURL + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
