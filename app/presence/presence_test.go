package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerOnlineWindow(t *testing.T) {
	tr := NewTracker(20 * time.Millisecond)

	assert.False(t, tr.IsOnline("w1"))
	tr.Touch("w1")
	tr.Touch("w2")
	assert.True(t, tr.IsOnline("w1"))
	assert.Equal(t, []string{"w1", "w2"}, tr.OnlineWorkers())

	time.Sleep(30 * time.Millisecond)
	tr.Touch("w2")

	assert.False(t, tr.IsOnline("w1"))
	assert.Equal(t, []string{"w2"}, tr.OnlineWorkers())
}

func TestTrackerPrunesStaleEntries(t *testing.T) {
	tr := NewTracker(time.Millisecond)
	tr.Touch("w1")
	time.Sleep(5 * time.Millisecond)

	assert.Empty(t, tr.OnlineWorkers())
	assert.Empty(t, tr.lastPoll)
}
