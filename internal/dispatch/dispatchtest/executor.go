// Package dispatchtest provides a recording dispatch.Executor for tests.
package dispatchtest

import (
	"sync"

	"github.com/listenupapp/watcherd/internal/dispatch"
)

// Executor records every started command without running anything.
type Executor struct {
	// StartErr, if set, decides whether a command fails to start.
	StartErr func(dispatch.Command) error
	// ExitErr is returned by every process's Wait.
	ExitErr error
	// Release, if set, keeps every process running until it is closed.
	Release <-chan struct{}

	commands []dispatch.Command
	mu       sync.Mutex
}

// Start implements dispatch.Executor.
func (e *Executor) Start(cmd dispatch.Command) (dispatch.Process, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.commands = append(e.commands, cmd)
	if e.StartErr != nil {
		if err := e.StartErr(cmd); err != nil {
			return nil, err
		}
	}
	return process{pid: len(e.commands), err: e.ExitErr, release: e.Release}, nil
}

// Commands returns the commands started so far, including failed ones.
func (e *Executor) Commands() []dispatch.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]dispatch.Command(nil), e.commands...)
}

// Lines returns the rendered line of every command started so far.
func (e *Executor) Lines() []string {
	cmds := e.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.Line
	}
	return lines
}

type process struct {
	err     error
	release <-chan struct{}
	pid     int
}

func (p process) Pid() int { return p.pid }

func (p process) Wait() error {
	if p.release != nil {
		<-p.release
	}
	return p.err
}
