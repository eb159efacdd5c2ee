// Package alert delivers operator-visible battery alerts.
package alert

import (
	"log/syslog"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Notifier records operator alerts. Warn is a user alert, Halt is an
// emergency announced right before the system is halted.
type Notifier interface {
	Warn(msg string) error
	Halt(msg string) error
}

var _ Notifier = &Syslog{}

// Syslog writes alerts to the system logger at LOG_ALERT and LOG_EMERG.
type Syslog struct {
	w *syslog.Writer
}

// NewSyslog connects to the local system logger.
func NewSyslog(tag string) (*Syslog, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_ALERT, tag)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to syslog")
	}
	return &Syslog{w: w}, nil
}

func (s *Syslog) Warn(msg string) error {
	return s.w.Alert(msg)
}

func (s *Syslog) Halt(msg string) error {
	return s.w.Emerg(msg)
}

func (s *Syslog) Close() error {
	return s.w.Close()
}

var _ Notifier = Console{}

// Console logs alerts through logrus. Used when running in the foreground.
type Console struct{}

func (Console) Warn(msg string) error {
	logrus.WithField("severity", "alert").Error(msg)
	return nil
}

func (Console) Halt(msg string) error {
	logrus.WithField("severity", "emerg").Error(msg)
	return nil
}

// Tee sends every alert to all notifiers and returns the first error.
type Tee []Notifier

func (t Tee) Warn(msg string) error {
	var first error
	for _, n := range t {
		if err := n.Warn(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) Halt(msg string) error {
	var first error
	for _, n := range t {
		if err := n.Halt(msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps alerts in memory.
type Recorder struct {
	mu    sync.Mutex
	Warns []string
	Halts []string
}

func (r *Recorder) Warn(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warns = append(r.Warns, msg)
	return nil
}

func (r *Recorder) Halt(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Halts = append(r.Halts, msg)
	return nil
}

// Counts returns the number of warn and halt alerts seen.
func (r *Recorder) Counts() (warns, halts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Warns), len(r.Halts)
}
