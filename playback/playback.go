// Package playback connects the player to its consumers: commands go out
// through Controller and Queuer, snapshots come back through a Hub fed by a
// Poller.
package playback

import (
	"context"

	"jucket/spotify/model"
)

// PreviousThreshold is the position below which "previous" goes to the
// previous track instead of only restarting the current one.
const PreviousThreshold = 5000

// Controller is the set of player commands the skin issues.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Toggle(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, fraction float64) error
}

// Queuer adds tracks to the queue and switches the playback context.
type Queuer interface {
	AddToQueue(ctx context.Context, uri string) error
	PlayContext(ctx context.Context, uri string) error
}

// StateSource reads the current player state.
type StateSource interface {
	CurrentState(ctx context.Context) (*model.Snapshot, error)
}

// Back implements the "previous" button: early in a track it moves to the
// previous track, and it always restarts playback from 0.
func Back(ctx context.Context, ctl Controller, positionMs int) error {
	if positionMs < PreviousThreshold {
		if err := ctl.Previous(ctx); err != nil {
			return err
		}
	}
	return ctl.Seek(ctx, 0)
}
