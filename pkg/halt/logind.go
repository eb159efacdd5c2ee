package halt

import (
	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	logindDest = "org.freedesktop.login1"
	logindPath = "/org/freedesktop/login1"
	powerOff   = "org.freedesktop.login1.Manager.PowerOff"
)

var _ Halter = &Logind{}

// Logind asks systemd-logind to power the machine off. The call returns
// once logind has accepted the request. Nobody is around to answer a
// polkit prompt, so the request is never interactive.
type Logind struct {
	connect func() (*dbus.Conn, error)
}

func NewLogind() *Logind {
	return &Logind{connect: dbus.SystemBus}
}

func (l *Logind) Halt() error {
	conn, err := l.connect()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to connect to system bus")
	}

	logrus.Info("requesting power off from logind")

	call := conn.Object(logindDest, logindPath).Call(powerOff, 0, false)
	if call.Err != nil {
		return pkgerrors.Wrap(call.Err, "logind refused to power off")
	}

	return nil
}
