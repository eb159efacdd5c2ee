package config

import (
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultPIDFile     = "/var/run/battmond.pid"
	DefaultInterval    = 10 * time.Second
	DefaultWarnPercent = 10
	DefaultHaltPercent = 5
	DefaultBackend     = "sysfs"
	// DefaultStatusSocket is where `battmond status` looks for the daemon.
	DefaultStatusSocket = "/var/run/battmond.sock"

	HaltMethodExec   = "exec"
	HaltMethodLogind = "logind"
)

// DefaultHaltCommand powers the machine off after halting.
var DefaultHaltCommand = []string{"/sbin/halt", "-p"}

// Config is the monitor configuration. It is built from command-line flags
// and must not change after Validate succeeds.
type Config struct {
	// DevicePath is the battery device. Empty selects the backend default.
	DevicePath string `json:"devicePath"`
	Backend    string `json:"backend"`
	PIDFile    string `json:"pidFile"`

	Interval    time.Duration `json:"interval"`
	WarnPercent int           `json:"warnPercent"`
	HaltPercent int           `json:"haltPercent"`

	HaltMethod  string   `json:"haltMethod"`
	HaltCommand []string `json:"haltCommand"`
	DryRun      bool     `json:"dryRun"`

	Foreground   bool   `json:"foreground"`
	StatusSocket string `json:"statusSocket,omitempty"`
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Backend:     DefaultBackend,
		PIDFile:     DefaultPIDFile,
		Interval:    DefaultInterval,
		WarnPercent: DefaultWarnPercent,
		HaltPercent: DefaultHaltPercent,
		HaltMethod:  HaltMethodExec,
		HaltCommand: append([]string(nil), DefaultHaltCommand...),
	}
}

// Validate checks the configuration. All errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return invalid("error in interval value: %s", c.Interval)
	}
	if c.WarnPercent <= 0 {
		return invalid("error in warning threshold value: %d", c.WarnPercent)
	}
	if c.HaltPercent <= 0 {
		return invalid("error in halt threshold value: %d", c.HaltPercent)
	}
	if c.WarnPercent <= c.HaltPercent {
		return invalid("warning threshold (%d%%) is lower or equal to the halt threshold (%d%%)", c.WarnPercent, c.HaltPercent)
	}

	switch c.HaltMethod {
	case HaltMethodExec:
		if len(c.HaltCommand) == 0 || c.HaltCommand[0] == "" {
			return invalid("halt command must not be empty")
		}
	case HaltMethodLogind:
	default:
		return invalid("unknown halt method %q, must be %q or %q", c.HaltMethod, HaltMethodExec, HaltMethodLogind)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return pkgerrors.Wrap(ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c Config) LogrusFields() logrus.Fields {
	fields := logrus.Fields{
		"device":      c.DevicePath,
		"backend":     c.Backend,
		"pidFile":     c.PIDFile,
		"interval":    c.Interval.String(),
		"warnPercent": c.WarnPercent,
		"haltPercent": c.HaltPercent,
		"haltMethod":  c.HaltMethod,
		"dryRun":      c.DryRun,
		"foreground":  c.Foreground,
	}
	if c.HaltMethod == HaltMethodExec {
		fields["haltCommand"] = c.HaltCommand
	}
	if c.StatusSocket != "" {
		fields["statusSocket"] = c.StatusSocket
	}
	return fields
}
