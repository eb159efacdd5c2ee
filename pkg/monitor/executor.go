package monitor

import (
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battmond/pkg/alert"
	"github.com/charlie0129/battmond/pkg/halt"
)

const (
	WarnMessage = "Your battery power is running low. Please connect the power cord or save any unsaved work and halt the system."
	HaltMessage = "Your battery power is in critical level. Your system will now halt to preserve any unsaved work."
)

// Executor performs the side effects of a policy decision.
type Executor struct {
	Notifier alert.Notifier
	Halter   halt.Halter
}

// Execute carries out a. Alert delivery failures are logged, not returned.
// For ActionHalt the halter's error is returned; a halter that replaces
// the process never returns.
func (e *Executor) Execute(a Action) error {
	switch a {
	case ActionWarn:
		if err := e.Notifier.Warn(WarnMessage); err != nil {
			logrus.Errorf("failed to deliver low battery alert: %v", err)
		}
	case ActionHalt:
		if err := e.Notifier.Halt(HaltMessage); err != nil {
			logrus.Errorf("failed to deliver critical battery alert: %v", err)
		}
		return e.Halter.Halt()
	}
	return nil
}
