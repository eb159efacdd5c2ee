// Package device reads per-unit battery status from a platform battery
// interface. A Device is opened once per sampling cycle and the returned
// Handle is closed before the cycle ends.
package device

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CapacityUnknown is the capacity reported for a unit whose charge
// percentage cannot be read.
const CapacityUnknown = -1

// FallbackUnits is the number of units probed when the platform cannot
// report how many battery units it has.
const FallbackUnits = 5

// ErrNoUnit is returned when a unit index has no battery behind it.
var ErrNoUnit = errors.New("no such battery unit")

// Presence tells whether a battery is inserted in a unit slot.
type Presence int

const (
	// NotPresent indicates the slot is empty.
	NotPresent Presence = iota
	// Present indicates a battery is inserted.
	Present
)

func (p Presence) String() string {
	if p == Present {
		return "present"
	}
	return "not present"
}

func (p Presence) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Presence) UnmarshalText(b []byte) error {
	switch string(b) {
	case "present":
		*p = Present
	case "not present":
		*p = NotPresent
	default:
		return fmt.Errorf("unknown presence %q", string(b))
	}
	return nil
}

// ChargeState is the charging state of a single unit.
type ChargeState int

const (
	// ChargeOther covers full, idle and unknown states.
	ChargeOther ChargeState = iota
	// Charging indicates the unit is being charged.
	Charging
	// Discharging indicates the unit is powering the system.
	Discharging
)

func (s ChargeState) String() string {
	switch s {
	case Charging:
		return "charging"
	case Discharging:
		return "discharging"
	default:
		return "other"
	}
}

func (s ChargeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ChargeState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "charging":
		*s = Charging
	case "discharging":
		*s = Discharging
	case "other":
		*s = ChargeOther
	default:
		return fmt.Errorf("unknown charge state %q", string(b))
	}
	return nil
}

// UnitReading is the status of one battery unit at one instant.
type UnitReading struct {
	Unit     int         `json:"unit"`
	Presence Presence    `json:"presence"`
	State    ChargeState `json:"state"`
	// Capacity is the charge percentage, or CapacityUnknown.
	Capacity int `json:"capacity"`
}

// IsPresent reports whether a battery is inserted.
func (r UnitReading) IsPresent() bool {
	return r.Presence == Present
}

// CapacityValid reports whether Capacity holds a real reading.
func (r UnitReading) CapacityValid() bool {
	return r.Capacity != CapacityUnknown && r.Capacity >= 0
}

// Contributes reports whether the unit counts toward total capacity:
// it must be present, have a valid capacity and not be charging.
func (r UnitReading) Contributes() bool {
	return r.IsPresent() && r.CapacityValid() && r.State != Charging
}

// Handle is an open battery device, valid for one sampling cycle.
type Handle interface {
	// Units returns the number of battery units the platform reports.
	Units() (int, error)
	// Unit queries the status of a single unit.
	Unit(unit int) (UnitReading, error)
	// Close releases the device.
	Close() error
}

// Device opens battery device handles.
type Device interface {
	// Open opens the device at path. An empty path selects DefaultPath.
	Open(path string) (Handle, error)
	// DefaultPath is the platform default device path.
	DefaultPath() string
}

var backends = map[string]func() Device{
	"sysfs":   func() Device { return &Sysfs{} },
	"generic": func() Device { return &Generic{} },
}

// DefaultBackend is used when no backend is given.
const DefaultBackend = "sysfs"

// New returns the Device registered as backend.
func New(backend string) (Device, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	f, ok := backends[backend]
	if !ok {
		return nil, fmt.Errorf("unknown battery backend %q, available: %s", backend, strings.Join(Backends(), ", "))
	}
	return f(), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
