package device

import (
	"math"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ Device = &Generic{}

// Generic reads batteries through the operating system's native battery
// API. The device path is not used.
type Generic struct{}

func (g *Generic) DefaultPath() string {
	return ""
}

func (g *Generic) Open(path string) (Handle, error) {
	if path != "" {
		logrus.WithField("path", path).Debug("generic battery backend ignores the device path")
	}
	return &genericHandle{}, nil
}

type genericHandle struct{}

func (h *genericHandle) Units() (int, error) {
	batteries, err := battery.GetAll()
	if len(batteries) == 0 {
		if err == nil {
			return 0, nil
		}
		return 0, pkgerrors.Wrap(err, "failed to list batteries")
	}
	// Partial errors still tell us how many batteries exist.
	return len(batteries), nil
}

func (h *genericHandle) Unit(unit int) (UnitReading, error) {
	bat, err := battery.Get(unit)
	if bat == nil {
		if err == nil {
			err = ErrNoUnit
		}
		return UnitReading{}, pkgerrors.Wrapf(err, "unit %d", unit)
	}
	if err != nil {
		logrus.WithField("unit", unit).Debugf("partial battery info: %v", err)
	}
	return readingFromBattery(unit, bat), nil
}

func (h *genericHandle) Close() error {
	return nil
}

func readingFromBattery(unit int, bat *battery.Battery) UnitReading {
	r := UnitReading{
		Unit:     unit,
		Presence: Present,
		State:    ChargeOther,
		Capacity: CapacityUnknown,
	}

	// Ghost batteries report no capacity at all.
	if bat.Full == 0 && bat.Design == 0 {
		r.Presence = NotPresent
	}

	switch bat.State {
	case battery.Charging:
		r.State = Charging
	case battery.Discharging:
		r.State = Discharging
	}

	if bat.Full > 0 {
		r.Capacity = int(math.Round(bat.Current / bat.Full * 100))
	}

	return r
}
