// Package dropzone handles Spotify links dropped (pasted) onto the queue:
// tracks are queued, albums, artists and playlists replace the context.
package dropzone

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jucket/playback"
	"jucket/spotify"
)

// ErrUnrecognized is returned by Parse for text that is not a Spotify link.
var ErrUnrecognized = errors.New("not a Spotify track, album, artist or playlist link")

// Action is what a drop did.
type Action int

const (
	Ignored Action = iota
	Queued
	ContextStarted
)

func (a Action) String() string {
	switch a {
	case Queued:
		return "queued"
	case ContextStarted:
		return "context_started"
	default:
		return "ignored"
	}
}

// Result describes a handled drop.
type Result struct {
	Action Action
	URI    string // native form of the dropped link
}

// Parse extracts the Spotify URI from dropped text.
func Parse(text string) (spotify.URI, error) {
	u, err := spotify.ParseURI(text)
	if err != nil {
		return spotify.URI{}, fmt.Errorf("%w: %w", ErrUnrecognized, err)
	}
	return u, nil
}

// Handler turns drops into queue and context commands.
type Handler struct {
	queuer playback.Queuer
	logger *zap.Logger
}

// NewHandler creates a Handler issuing commands through q.
func NewHandler(q playback.Queuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{queuer: q, logger: logger}
}

// Drop handles text dropped while currentContextURI is playing.
// Unrecognized text and re-dropping the current context are ignored without
// error; the returned error only reports a failed command.
func (h *Handler) Drop(ctx context.Context, text, currentContextURI string) (Result, error) {
	u, err := Parse(text)
	if err != nil {
		h.logger.Debug("Ignoring drop", zap.Error(err))
		return Result{Action: Ignored}, nil
	}

	uri := u.String()
	switch {
	case u.IsTrack():
		if err := h.queuer.AddToQueue(ctx, uri); err != nil {
			return Result{Action: Ignored, URI: uri}, err
		}
		h.logger.Debug("Queued dropped track", zap.String("uri", uri))
		return Result{Action: Queued, URI: uri}, nil

	case u.IsContext():
		if sameContext(uri, currentContextURI) {
			h.logger.Debug("Dropped the playing context, ignoring", zap.String("uri", uri))
			return Result{Action: Ignored, URI: uri}, nil
		}
		if err := h.queuer.PlayContext(ctx, uri); err != nil {
			return Result{Action: Ignored, URI: uri}, err
		}
		h.logger.Debug("Started dropped context", zap.String("uri", uri))
		return Result{Action: ContextStarted, URI: uri}, nil
	}

	return Result{Action: Ignored, URI: uri}, nil
}

func sameContext(uri, current string) bool {
	if current == "" {
		return false
	}
	if c, err := spotify.ParseURI(current); err == nil {
		return c.String() == uri
	}
	return current == uri
}
