// Package position estimates the playback position between the sparser
// updates reported by the player, for a smoothly moving seek bar.
package position

import (
	"sync"
	"time"
)

// TickInterval is the step of the local estimate.
const TickInterval = 500 * time.Millisecond

// State of the estimator.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Tracker holds the estimate for one track. The driver calls Update for
// every snapshot and Tick every TickInterval.
type Tracker struct {
	mu       sync.Mutex
	interval int

	trackURI string
	server   int // last server-reported position
	lastTick int // server position seen by the previous tick
	estimate int
	duration int
	paused   bool

	seeking bool
	drag    int
}

// New creates a Tracker with the default tick interval.
func New() *Tracker {
	return NewWithInterval(TickInterval)
}

// NewWithInterval creates a Tracker stepping by interval.
func NewWithInterval(interval time.Duration) *Tracker {
	return &Tracker{interval: int(interval / time.Millisecond), paused: true}
}

// Update records a snapshot. A new track or a changed server position
// snaps the estimate to the server value.
func (t *Tracker) Update(trackURI string, positionMs, durationMs int, paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.paused = paused
	t.duration = durationMs

	if trackURI != t.trackURI {
		t.trackURI = trackURI
		t.server = positionMs
		t.lastTick = positionMs
		t.estimate = positionMs
		return
	}
	if positionMs != t.server {
		t.server = positionMs
		t.estimate = positionMs
	}
}

// Tick advances the estimate by one interval, or snaps it to the server
// value if that changed since the previous tick. It is a no-op while
// stopped. The returned value is the displayed position.
func (t *Tracker) Tick() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stateLocked() == Running {
		if t.server != t.lastTick {
			t.lastTick = t.server
			t.estimate = t.server
		} else {
			t.estimate += t.interval
			if t.duration > 0 && t.estimate > t.duration {
				t.estimate = t.duration
			}
			if t.estimate < t.server {
				t.estimate = t.server
			}
		}
	}
	return t.positionLocked()
}

// Position returns the displayed position: the dragged value during a seek
// gesture, the estimate otherwise.
func (t *Tracker) Position() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

// Duration returns the duration of the current track.
func (t *Tracker) Duration() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// Fraction returns the displayed position as a fraction of the duration.
func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.duration <= 0 {
		return 0
	}
	f := float64(t.positionLocked()) / float64(t.duration)
	if f > 1 {
		return 1
	}
	return f
}

// State reports whether the estimate is advancing.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Seeking reports whether a seek gesture is in progress.
func (t *Tracker) Seeking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seeking
}

// BeginSeek starts a seek gesture at positionMs. Estimate updates stop
// until EndSeek.
func (t *Tracker) BeginSeek(positionMs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeking = true
	t.drag = t.clampLocked(positionMs)
}

// Drag moves the dragged position.
func (t *Tracker) Drag(positionMs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seeking {
		t.drag = t.clampLocked(positionMs)
	}
}

// EndSeek finishes the gesture and returns the position to seek to. The
// dragged value becomes the new baseline so the bar does not jump back
// while the seek command is in flight.
func (t *Tracker) EndSeek() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seeking {
		return 0, false
	}
	t.seeking = false
	t.server = t.drag
	t.lastTick = t.drag
	t.estimate = t.drag
	return t.drag, true
}

// CancelSeek abandons the gesture without seeking.
func (t *Tracker) CancelSeek() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seeking = false
}

func (t *Tracker) stateLocked() State {
	if t.paused || t.seeking || t.trackURI == "" {
		return Stopped
	}
	return Running
}

func (t *Tracker) positionLocked() int {
	if t.seeking {
		return t.drag
	}
	return t.estimate
}

func (t *Tracker) clampLocked(ms int) int {
	if ms < 0 {
		return 0
	}
	if t.duration > 0 && ms > t.duration {
		return t.duration
	}
	return ms
}
