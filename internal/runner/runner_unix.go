//go:build !windows

package runner

import (
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Start starts the child process in its own process group, so Stop reaches
// everything it spawns.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.newCmd()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "starting %s", r.command)
	}
	r.cmd, r.done = cmd, make(chan struct{})
	r.wait(cmd, r.done)
	r.Log.Debug("process started", zap.String("command", r.command), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Stop sends SIGTERM to the process group and kills it if it has not exited
// within stopTimeout.
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

	pgid, err := syscall.Getpgid(r.cmd.Process.Pid)
	signal := func(sig syscall.Signal) {
		if err == nil {
			_ = syscall.Kill(-pgid, sig)
		} else {
			_ = r.cmd.Process.Signal(sig)
		}
	}

	signal(syscall.SIGTERM)
	select {
	case <-r.done:
	case <-time.After(stopTimeout):
		signal(syscall.SIGKILL)
		<-r.done
	}
	return nil
}
