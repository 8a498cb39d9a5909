package dispatch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Reaper waits on background commands so none is left a zombie, and lets
// shutdown wait a bounded time for them. It is shared by all jobs.
type Reaper struct {
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewReaper creates an idle reaper.
func NewReaper() *Reaper {
	return &Reaper{}
}

// Go runs wait in the background and tracks it until it returns.
func (r *Reaper) Go(wait func()) {
	r.inFlight.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Add(-1)
		wait()
	}()
}

// InFlight returns the number of tracked commands still running.
func (r *Reaper) InFlight() int64 {
	return r.inFlight.Load()
}

// Wait blocks until every tracked command has exited or timeout elapses.
// It reports whether all commands exited. Commands still running are left
// alone.
func (r *Reaper) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
