package device

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeSupply(t *testing.T, root, name, typ string, props ...string) {
	t.Helper()

	writeTestFile(t, filepath.Join(root, name, "type"), typ+"\n")
	writeTestFile(t, filepath.Join(root, name, "uevent"), strings.Join(append(props, ""), "\n"))
}

func TestSysfs_UnitsAndReadings(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", "Mains", "POWER_SUPPLY_ONLINE=0")
	writeSupply(t, root, "BAT1", "Battery",
		"POWER_SUPPLY_STATUS=Charging",
		"POWER_SUPPLY_PRESENT=1",
		"POWER_SUPPLY_CAPACITY=77",
	)
	writeSupply(t, root, "BAT0", "Battery",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_PRESENT=1",
		"POWER_SUPPLY_CAPACITY=42",
	)

	h, err := (&Sysfs{}).Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	units, err := h.Units()
	if err != nil {
		t.Fatalf("Units() error = %v", err)
	}
	if units != 2 {
		t.Fatalf("Units() = %d, want 2", units)
	}

	r0, err := h.Unit(0)
	if err != nil {
		t.Fatalf("Unit(0) error = %v", err)
	}
	want0 := UnitReading{Unit: 0, Presence: Present, State: Discharging, Capacity: 42}
	if r0 != want0 {
		t.Fatalf("Unit(0) = %+v, want %+v", r0, want0)
	}

	r1, err := h.Unit(1)
	if err != nil {
		t.Fatalf("Unit(1) error = %v", err)
	}
	want1 := UnitReading{Unit: 1, Presence: Present, State: Charging, Capacity: 77}
	if r1 != want1 {
		t.Fatalf("Unit(1) = %+v, want %+v", r1, want1)
	}

	if _, err := h.Unit(2); !errors.Is(err, ErrNoUnit) {
		t.Fatalf("Unit(2) error = %v, want ErrNoUnit", err)
	}
}

func TestSysfs_ProbesWithoutDiscovery(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", "Battery",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CAPACITY=9",
	)

	h, err := (&Sysfs{}).Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	r, err := h.Unit(0)
	if err != nil {
		t.Fatalf("Unit(0) error = %v", err)
	}
	if r.Capacity != 9 || r.State != Discharging || !r.IsPresent() {
		t.Fatalf("Unit(0) = %+v", r)
	}

	if _, err := h.Unit(1); !errors.Is(err, ErrNoUnit) {
		t.Fatalf("Unit(1) error = %v, want ErrNoUnit", err)
	}
}

func TestSysfs_OpenMissingPath(t *testing.T) {
	_, err := (&Sysfs{}).Open(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("Open() error = nil, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Open() error = %v, want not exist", err)
	}
}

func TestSysfs_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acpi")
	writeTestFile(t, path, "")

	if _, err := (&Sysfs{}).Open(path); err == nil {
		t.Fatal("Open() on a regular file should fail")
	}
}

func TestReadingFromUevent(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]string
		want  UnitReading
	}{
		{
			name:  "absent",
			props: map[string]string{"POWER_SUPPLY_PRESENT": "0", "POWER_SUPPLY_STATUS": "Unknown"},
			want:  UnitReading{Unit: 3, Presence: NotPresent, State: ChargeOther, Capacity: CapacityUnknown},
		},
		{
			name:  "full on ac",
			props: map[string]string{"POWER_SUPPLY_STATUS": "Full", "POWER_SUPPLY_CAPACITY": "100"},
			want:  UnitReading{Unit: 3, Presence: Present, State: ChargeOther, Capacity: 100},
		},
		{
			name:  "garbage capacity",
			props: map[string]string{"POWER_SUPPLY_STATUS": "Discharging", "POWER_SUPPLY_CAPACITY": "n/a"},
			want:  UnitReading{Unit: 3, Presence: Present, State: Discharging, Capacity: CapacityUnknown},
		},
		{
			name:  "not charging",
			props: map[string]string{"POWER_SUPPLY_STATUS": "Not charging", "POWER_SUPPLY_CAPACITY": "80"},
			want:  UnitReading{Unit: 3, Presence: Present, State: ChargeOther, Capacity: 80},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readingFromUevent(3, tt.props); got != tt.want {
				t.Errorf("readingFromUevent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
