package monitor

import (
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battmond/pkg/device"
)

// Sampler reads every battery unit once per call.
type Sampler struct {
	dev  device.Device
	path string
}

func NewSampler(dev device.Device, path string) *Sampler {
	return &Sampler{dev: dev, path: path}
}

// Sample opens the device, reads units until the first failed query and
// closes the device again. Only an open failure is returned as an error.
func (s *Sampler) Sample() ([]device.UnitReading, error) {
	h, err := s.dev.Open(s.path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to open battery device")
	}
	defer func() {
		if err := h.Close(); err != nil {
			logrus.Warnf("failed to close battery device %s: %v", s.path, err)
		}
	}()

	units, err := h.Units()
	if err != nil {
		logrus.Warnf("unable to retrieve battery count, defaulting to probing %d units: %v", device.FallbackUnits, err)
		units = device.FallbackUnits
	}
	logrus.Tracef("%d battery units detected", units)

	readings := make([]device.UnitReading, 0, units)
	for unit := 0; unit < units; unit++ {
		r, err := h.Unit(unit)
		if err != nil {
			logrus.WithField("unit", unit).Debugf("stopped scanning battery units: %v", err)
			break
		}
		logrus.WithFields(logrus.Fields{
			"unit":     unit,
			"presence": r.Presence,
			"state":    r.State,
			"capacity": r.Capacity,
		}).Trace("battery unit read")
		readings = append(readings, r)
	}

	return readings, nil
}
