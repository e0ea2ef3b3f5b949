package spotify

import (
	spotifyapi "github.com/zmb3/spotify/v2"

	"jucket/spotify/model"
)

func convertArtists(artists []spotifyapi.SimpleArtist) []model.Artist {
	out := make([]model.Artist, 0, len(artists))
	for _, a := range artists {
		out = append(out, model.Artist{Name: a.Name, URI: string(a.URI)})
	}
	return out
}

func convertFullTrack(t *spotifyapi.FullTrack) *model.Track {
	if t == nil {
		return nil
	}

	track := &model.Track{
		ID:         string(t.ID),
		URI:        string(t.URI),
		Name:       t.Name,
		Artists:    convertArtists(t.Artists),
		DurationMs: int(t.Duration),
		Album: model.Album{
			Name: t.Album.Name,
			URI:  string(t.Album.URI),
		},
	}
	// Images are ordered largest first; the player shows a thumbnail
	if n := len(t.Album.Images); n > 0 {
		track.Album.ImageURL = t.Album.Images[n-1].URL
	}
	return track
}

func convertSimpleTrack(t spotifyapi.SimpleTrack) model.Track {
	return model.Track{
		ID:         string(t.ID),
		URI:        string(t.URI),
		Name:       t.Name,
		Artists:    convertArtists(t.Artists),
		DurationMs: int(t.Duration),
	}
}
