//go:build windows

package runner

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Start starts the child process.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting %s", r.command)
	}
	r.cmd, r.done = cmd, make(chan struct{})
	r.wait(cmd, r.done)
	r.Log.Debug("process started", zap.String("command", r.command), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Stop kills the child process. Windows has no process groups or SIGTERM.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	default:
	}

	_ = r.cmd.Process.Kill()
	select {
	case <-r.done:
	case <-time.After(stopTimeout):
		<-r.done
	}
	return nil
}
