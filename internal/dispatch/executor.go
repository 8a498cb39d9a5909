package dispatch

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// Environment variables set for every command.
const (
	EnvJob   = "WATCHER_JOB"
	EnvRunID = "WATCHER_RUN_ID"
)

// Command is one rendered command ready to start.
type Command struct {
	Job   string
	RunID string
	// Line is the rendered template.
	Line string
	// Shell runs Line as "Shell -c Line". Empty means Line is split into
	// words and executed directly.
	Shell string
	// Env is added to the daemon's environment.
	Env []string
}

// Argv returns the argument vector to execute.
func (c Command) Argv() ([]string, error) {
	if c.Shell != "" {
		return []string{c.Shell, "-c", c.Line}, nil
	}

	words, err := shellquote.Split(c.Line)
	if err != nil {
		return nil, fmt.Errorf("split command line: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("empty command line")
	}
	return words, nil
}

// Process is a started command.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and releases its resources.
	Wait() error
}

// Executor starts commands.
type Executor interface {
	Start(cmd Command) (Process, error)
}

// OSExecutor starts commands as child processes. Output goes to Stdout and
// Stderr, or is discarded when they are nil.
type OSExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Start implements Executor.
func (e OSExecutor) Start(c Command) (Process, error) {
	argv, err := c.Argv()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return osProcess{cmd: cmd}, nil
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p osProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p osProcess) Wait() error {
	return p.cmd.Wait()
}
