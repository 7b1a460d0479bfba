// Package runner keeps one child process alive across rebuilds, for
// emit --watch --exec.
package runner

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// stopTimeout is how long Stop waits after a graceful signal before killing.
const stopTimeout = 5 * time.Second

// Runner manages a child process that is restarted after every successful
// emit, e.g. a test suite exercising the generated guards.
type Runner struct {
	command string
	args    []string
	workDir string

	// Stdout and Stderr receive the child's output. They default to the
	// parent's streams.
	Stdout, Stderr io.Writer
	// DisableStdin detaches the child from the parent's stdin, so it sees EOF.
	DisableStdin bool
	// Log receives start and exit events. Defaults to a no-op logger.
	Log *zap.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// New creates a runner for command. It does not start the process.
func New(command string, args []string, workDir string) *Runner {
	return &Runner{
		command: command,
		args:    args,
		workDir: workDir,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Log:     zap.NewNop(),
	}
}

func (r *Runner) newCmd() *exec.Cmd {
	cmd := exec.Command(r.command, r.args...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if !r.DisableStdin {
		cmd.Stdin = os.Stdin
	}
	return cmd
}

// wait reaps cmd in the background and closes done when it exits.
func (r *Runner) wait(cmd *exec.Cmd, done chan struct{}) {
	go func() {
		err := cmd.Wait()
		r.Log.Debug("process exited", zap.String("command", r.command), zap.Error(err))
		close(done)
	}()
}

// Restart stops the child process, if any, and starts a new one.
func (r *Runner) Restart() error {
	if err := r.Stop(); err != nil {
		return err
	}
	return r.Start()
}

// Wait blocks until the child process exits.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running returns true if the child process is running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}
