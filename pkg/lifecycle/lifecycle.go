// Package lifecycle detaches the monitor from its terminal and guards it
// with a PID file, so only one instance runs at a time.
package lifecycle

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	detachedEnv  = "BATTMOND_DETACHED"
	pidfileFDEnv = "BATTMOND_PIDFILE_FD"
	// inheritedFD is the first descriptor after stdio.
	inheritedFD = 3
)

// Manager is consumed once at startup, before the monitor loop.
type Manager interface {
	// AcquireLock takes the PID file lock. An error matching
	// ErrAlreadyRunning is fatal; other errors may be treated as warnings.
	AcquireLock() error
	// Detach moves the process into the background. The foreground
	// parent does not return.
	Detach() error
}

// Detached reports whether this process is the background child.
func Detached() bool {
	return os.Getenv(detachedEnv) == "1"
}

var _ Manager = &Daemon{}

// Daemon is the Manager used by battmond.
type Daemon struct {
	PIDFilePath string
	// Foreground skips detaching.
	Foreground bool

	pidfile *PIDFile

	executable func() (string, error)
	start      func(cmd *exec.Cmd) error
	exit       func(code int)
}

func New(pidfilePath string, foreground bool) *Daemon {
	return &Daemon{
		PIDFilePath: pidfilePath,
		Foreground:  foreground,
		executable:  os.Executable,
		start:       func(cmd *exec.Cmd) error { return cmd.Start() },
		exit:        os.Exit,
	}
}

// AcquireLock locks the PID file. A detached child adopts the descriptor
// its parent locked.
func (d *Daemon) AcquireLock() error {
	if Detached() {
		if v := os.Getenv(pidfileFDEnv); v != "" {
			fd, err := strconv.Atoi(v)
			if err != nil {
				return pkgerrors.Wrapf(err, "invalid %s", pidfileFDEnv)
			}
			p, err := adoptPIDFile(uintptr(fd), d.PIDFilePath)
			if err != nil {
				return err
			}
			d.pidfile = p
			return nil
		}
	}

	p, err := OpenPIDFile(d.PIDFilePath)
	if err != nil {
		return err
	}
	d.pidfile = p
	return nil
}

// Detach re-executes the binary in a new session with stdio on /dev/null
// and exits the parent. The process that keeps running writes its PID.
func (d *Daemon) Detach() error {
	if !d.Foreground && !Detached() {
		exe, err := d.executable()
		if err != nil {
			return pkgerrors.Wrap(err, "failed to find own executable")
		}

		cmd := exec.Command(exe, os.Args[1:]...)
		cmd.Env = append(os.Environ(), detachedEnv+"=1")
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if d.pidfile != nil {
			cmd.ExtraFiles = []*os.File{d.pidfile.file()}
			cmd.Env = append(cmd.Env, pidfileFDEnv+"="+strconv.Itoa(inheritedFD))
		}

		if err := d.start(cmd); err != nil {
			return pkgerrors.Wrap(err, "failed to spawn daemon process")
		}

		logrus.Debugf("daemon process started with pid %d", cmd.Process.Pid)
		d.exit(0)
		return nil
	}

	if d.pidfile != nil {
		if err := d.pidfile.Write(os.Getpid()); err != nil {
			logrus.Warnf("failed to write pidfile: %v", err)
		}
	}
	return nil
}

// Release removes the PID file if this process holds it.
func (d *Daemon) Release() {
	if d.pidfile == nil {
		return
	}
	if err := d.pidfile.Remove(); err != nil {
		logrus.Warnf("failed to remove pidfile %s: %v", d.pidfile.Path(), err)
	}
	d.pidfile = nil
}
