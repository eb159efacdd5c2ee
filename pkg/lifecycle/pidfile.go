package lifecycle

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrAlreadyRunning is matched by AlreadyRunningError.
var ErrAlreadyRunning = errors.New("another instance is already running")

// AlreadyRunningError is returned when the PID file is locked by another
// process.
type AlreadyRunningError struct {
	Path string
	// PID of the other instance, 0 if it could not be read.
	PID int
}

func (e *AlreadyRunningError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("already running, pid: %d (%s is locked)", e.PID, e.Path)
	}
	return fmt.Sprintf("already running (%s is locked)", e.Path)
}

func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// PIDFile is an exclusively locked PID file. The lock lives as long as the
// open file description, including across exec.
type PIDFile struct {
	f    *os.File
	path string
}

// OpenPIDFile opens path with mode 0600 and locks it without blocking.
func OpenPIDFile(path string) (*PIDFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open pidfile %s", path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		defer f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, &AlreadyRunningError{Path: path, PID: readPID(f)}
		}
		return nil, pkgerrors.Wrapf(err, "failed to lock pidfile %s", path)
	}

	return &PIDFile{f: f, path: path}, nil
}

// adoptPIDFile wraps a descriptor inherited from the parent, which already
// holds the lock.
func adoptPIDFile(fd uintptr, path string) (*PIDFile, error) {
	f := os.NewFile(fd, path)
	if f == nil {
		return nil, fmt.Errorf("invalid inherited pidfile descriptor %d", fd)
	}
	return &PIDFile{f: f, path: path}, nil
}

func readPID(f *os.File) int {
	b, err := io.ReadAll(io.NewSectionReader(f, 0, 32))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return pid
}

// Write replaces the file content with pid.
func (p *PIDFile) Write(pid int) error {
	if err := p.f.Truncate(0); err != nil {
		return pkgerrors.Wrapf(err, "failed to truncate %s", p.path)
	}
	if _, err := p.f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", p.path)
	}
	return p.f.Sync()
}

// Remove deletes the file and releases the lock.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.path)
	if cerr := p.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (p *PIDFile) Path() string {
	return p.path
}

func (p *PIDFile) file() *os.File {
	return p.f
}
