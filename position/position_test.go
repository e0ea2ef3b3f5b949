package position

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const track = "spotify:track:a"

func TestTickExtrapolates(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)
	assert.Equal(t, Running, tr.State())

	assert.Equal(t, 10500, tr.Tick())
	assert.Equal(t, 11000, tr.Tick())
}

func TestTickSnapsToChangedServerPosition(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)
	assert.Equal(t, 10500, tr.Tick())

	// The update snaps right away and the next tick keeps the server value
	tr.Update(track, 10200, 200000, false)
	assert.Equal(t, 10200, tr.Position())
	assert.Equal(t, 10200, tr.Tick())
	assert.Equal(t, 10700, tr.Tick())
}

func TestUnchangedUpdateKeepsEstimate(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)
	tr.Tick()
	tr.Update(track, 10000, 200000, false)
	assert.Equal(t, 10500, tr.Position())
}

func TestNeverBelowServerPosition(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)
	for i := 0; i < 5; i++ {
		assert.GreaterOrEqual(t, tr.Tick(), 10000)
	}
	tr.Update(track, 30000, 200000, false)
	for i := 0; i < 5; i++ {
		assert.GreaterOrEqual(t, tr.Tick(), 30000)
	}
}

func TestTrackChangeResets(t *testing.T) {
	tr := New()
	tr.Update(track, 50000, 200000, false)
	tr.Tick()
	tr.Update("spotify:track:b", 0, 100000, false)
	assert.Equal(t, 0, tr.Position())
	assert.Equal(t, 500, tr.Tick())
}

func TestPausedDoesNotAdvance(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, true)
	assert.Equal(t, Stopped, tr.State())
	assert.Equal(t, 10000, tr.Tick())
	assert.Equal(t, 10000, tr.Tick())

	tr.Update(track, 10000, 200000, false)
	assert.Equal(t, 10500, tr.Tick())
}

func TestNothingPlayingIsStopped(t *testing.T) {
	tr := New()
	assert.Equal(t, Stopped, tr.State())
	assert.Equal(t, 0, tr.Tick())
	assert.Equal(t, 0.0, tr.Fraction())
}

func TestClampedToDuration(t *testing.T) {
	tr := New()
	tr.Update(track, 199800, 200000, false)
	assert.Equal(t, 200000, tr.Tick())
	assert.Equal(t, 200000, tr.Tick())
	assert.Equal(t, 1.0, tr.Fraction())
}

func TestSeekGesture(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)

	tr.BeginSeek(60000)
	assert.True(t, tr.Seeking())
	assert.Equal(t, Stopped, tr.State())
	assert.Equal(t, 60000, tr.Position())

	// Estimates and server updates do not move the bar during the drag
	tr.Update(track, 12000, 200000, false)
	assert.Equal(t, 60000, tr.Tick())

	tr.Drag(-50)
	assert.Equal(t, 0, tr.Position())
	tr.Drag(999999)
	assert.Equal(t, 200000, tr.Position())
	tr.Drag(90000)

	pos, ok := tr.EndSeek()
	assert.True(t, ok)
	assert.Equal(t, 90000, pos)
	assert.Equal(t, Running, tr.State())
	assert.Equal(t, 90500, tr.Tick())

	_, ok = tr.EndSeek()
	assert.False(t, ok)
}

func TestCancelSeek(t *testing.T) {
	tr := New()
	tr.Update(track, 10000, 200000, false)
	tr.BeginSeek(50000)
	tr.CancelSeek()
	assert.False(t, tr.Seeking())
	assert.Equal(t, 10000, tr.Position())
}

func TestCustomInterval(t *testing.T) {
	tr := NewWithInterval(time.Second)
	tr.Update(track, 0, 10000, false)
	assert.Equal(t, 1000, tr.Tick())
	assert.Equal(t, "running", tr.State().String())
}
