package device

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSysfsPath is the Linux power supply class directory.
const DefaultSysfsPath = "/sys/class/power_supply"

var _ Device = &Sysfs{}

// Sysfs reads batteries from the Linux power_supply class.
type Sysfs struct{}

func (s *Sysfs) DefaultPath() string {
	return DefaultSysfsPath
}

// Open opens the power supply directory. It fails if path does not exist
// or is not a directory.
func (s *Sysfs) Open(path string) (Handle, error) {
	if path == "" {
		path = DefaultSysfsPath
	}

	dir, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open %s", path)
	}

	fi, err := dir.Stat()
	if err != nil {
		_ = dir.Close()
		return nil, pkgerrors.Wrapf(err, "failed to stat %s", path)
	}
	if !fi.IsDir() {
		_ = dir.Close()
		return nil, pkgerrors.Wrapf(&os.PathError{Op: "open", Path: path, Err: syscall.ENOTDIR}, "failed to open %s", path)
	}

	return &sysfsHandle{dir: dir, path: path}, nil
}

type sysfsHandle struct {
	dir   *os.File
	path  string
	names []string
}

// Units lists supplies whose type is Battery, sorted by name.
func (h *sysfsHandle) Units() (int, error) {
	entries, err := h.dir.ReadDir(-1)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "failed to list %s", h.path)
	}

	var names []string
	for _, e := range entries {
		typ, err := os.ReadFile(filepath.Join(h.path, e.Name(), "type"))
		if err != nil {
			logrus.WithField("supply", e.Name()).Tracef("skipping power supply without type: %v", err)
			continue
		}
		if strings.TrimSpace(string(typ)) == "Battery" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	h.names = names
	return len(names), nil
}

// unitName maps a unit index to a supply name. Without a successful
// Units call the conventional BATn names are probed.
func (h *sysfsHandle) unitName(unit int) string {
	if h.names != nil {
		if unit < len(h.names) {
			return h.names[unit]
		}
		return ""
	}
	return fmt.Sprintf("BAT%d", unit)
}

func (h *sysfsHandle) Unit(unit int) (UnitReading, error) {
	name := h.unitName(unit)
	if name == "" {
		return UnitReading{}, pkgerrors.Wrapf(ErrNoUnit, "unit %d", unit)
	}

	ueventPath := filepath.Join(h.path, name, "uevent")
	data, err := os.ReadFile(ueventPath)
	if err != nil {
		if os.IsNotExist(err) {
			return UnitReading{}, pkgerrors.Wrapf(ErrNoUnit, "unit %d (%s)", unit, name)
		}
		return UnitReading{}, pkgerrors.Wrapf(err, "failed to read %s", ueventPath)
	}

	return readingFromUevent(unit, parseUevent(string(data))), nil
}

func (h *sysfsHandle) Close() error {
	return h.dir.Close()
}

func readingFromUevent(unit int, props map[string]string) UnitReading {
	r := UnitReading{
		Unit:     unit,
		Presence: Present,
		State:    ChargeOther,
		Capacity: CapacityUnknown,
	}

	if props["POWER_SUPPLY_PRESENT"] == "0" {
		r.Presence = NotPresent
	}

	switch props["POWER_SUPPLY_STATUS"] {
	case "Charging":
		r.State = Charging
	case "Discharging":
		r.State = Discharging
	}

	if v, ok := props["POWER_SUPPLY_CAPACITY"]; ok {
		if c, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && c >= 0 {
			r.Capacity = c
		}
	}

	return r
}

func parseUevent(data string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			props[k] = v
		}
	}
	return props
}
