package monitor

import "github.com/charlie0129/battmond/pkg/device"

// Aggregate folds one cycle's unit readings into a single judgment.
type Aggregate struct {
	// TotalCapacity sums the capacity of contributing units.
	TotalCapacity    int `json:"totalCapacity"`
	DischargingCount int `json:"dischargingCount"`
	// ChargingCount counts present units that are not discharging.
	ChargingCount int `json:"chargingCount"`
	// Interrupted is set when any unit was absent, unreadable or not
	// discharging. It clears a pending warning.
	Interrupted bool `json:"interrupted"`
}

// Fold aggregates readings. It does no I/O.
func Fold(readings []device.UnitReading) Aggregate {
	var a Aggregate
	for _, r := range readings {
		if !r.IsPresent() || !r.CapacityValid() {
			a.Interrupted = true
			continue
		}

		if r.Contributes() {
			a.TotalCapacity += r.Capacity
		}

		if r.State == device.Discharging {
			a.DischargingCount++
		} else {
			a.ChargingCount++
			a.Interrupted = true
		}
	}
	return a
}

// Decidable reports whether the thresholds apply to this cycle: something
// is discharging, nothing is on external power, and the total is a real
// reading.
func (a Aggregate) Decidable() bool {
	return a.DischargingCount > 0 && a.ChargingCount == 0 && a.TotalCapacity > 0
}
