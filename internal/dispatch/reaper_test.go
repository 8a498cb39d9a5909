package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReaper_WaitTimesOut(t *testing.T) {
	r := NewReaper()
	release := make(chan struct{})
	r.Go(func() { <-release })

	assert.Equal(t, int64(1), r.InFlight())
	assert.False(t, r.Wait(10*time.Millisecond), "running command should hold the reaper")

	close(release)
	assert.True(t, r.Wait(time.Second))
	assert.Zero(t, r.InFlight())
}

func TestReaper_WaitIdle(t *testing.T) {
	assert.True(t, NewReaper().Wait(time.Second))
}
