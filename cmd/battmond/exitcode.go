package main

import (
	"errors"
	"syscall"

	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/lifecycle"
)

// exOSErr is EX_OSERR from sysexits.h.
const exOSErr = 71

// exitCode maps a command error to the process exit status. Failures that
// carry an errno exit with it.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		return exOSErr
	case errors.Is(err, config.ErrInvalidConfig):
		return int(syscall.EINVAL)
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno != 0 {
		return int(errno)
	}
	return 1
}
