// Package halt turns the machine off once battery charge is critical.
package halt

import (
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Halter requests a system halt. Implementations that replace the running
// process never return on success.
type Halter interface {
	Halt() error
}

var _ Halter = &Exec{}

// Exec replaces the current process image with a halt command.
type Exec struct {
	// Command is the absolute path followed by its arguments.
	Command []string

	exec func(argv0 string, argv []string, envv []string) error
}

// NewExec returns an Exec running command, e.g. /sbin/halt -p.
func NewExec(command []string) *Exec {
	return &Exec{
		Command: command,
		exec:    unix.Exec,
	}
}

// Halt only returns when the exec fails. The returned error wraps the
// underlying errno.
func (e *Exec) Halt() error {
	if len(e.Command) == 0 {
		return pkgerrors.New("no halt command configured")
	}

	path := e.Command[0]
	argv := append([]string{filepath.Base(path)}, e.Command[1:]...)

	logrus.WithFields(logrus.Fields{
		"path": path,
		"argv": argv,
	}).Info("executing halt command")

	err := e.exec(path, argv, os.Environ())
	return pkgerrors.Wrapf(err, "failed to execute %s", path)
}

var _ Halter = &Recorder{}

// Recorder counts halt requests without touching the system. It backs
// --dry-run and tests.
type Recorder struct {
	Err error

	mu    sync.Mutex
	calls int
}

func (r *Recorder) Halt() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	logrus.Warn("dry run: not halting the system")
	return r.Err
}

// Calls returns how many times Halt was called.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
