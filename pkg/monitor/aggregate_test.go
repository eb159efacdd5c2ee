package monitor

import (
	"math/rand"
	"testing"

	"github.com/charlie0129/battmond/pkg/device"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name     string
		readings []device.UnitReading
		want     Aggregate
	}{
		{
			name: "no units",
			want: Aggregate{},
		},
		{
			name:     "single discharging",
			readings: []device.UnitReading{unit(device.Discharging, 42)},
			want:     Aggregate{TotalCapacity: 42, DischargingCount: 1},
		},
		{
			name:     "two discharging",
			readings: []device.UnitReading{unit(device.Discharging, 4), unit(device.Discharging, 3)},
			want:     Aggregate{TotalCapacity: 7, DischargingCount: 2},
		},
		{
			name:     "charging does not contribute",
			readings: []device.UnitReading{unit(device.Discharging, 30), unit(device.Charging, 50)},
			want:     Aggregate{TotalCapacity: 30, DischargingCount: 1, ChargingCount: 1, Interrupted: true},
		},
		{
			name:     "full on ac",
			readings: []device.UnitReading{unit(device.ChargeOther, 100)},
			want:     Aggregate{TotalCapacity: 100, ChargingCount: 1, Interrupted: true},
		},
		{
			name:     "absent unit",
			readings: []device.UnitReading{absent(), unit(device.Discharging, 8)},
			want:     Aggregate{TotalCapacity: 8, DischargingCount: 1, Interrupted: true},
		},
		{
			name:     "unknown capacity",
			readings: []device.UnitReading{unit(device.Discharging, device.CapacityUnknown)},
			want:     Aggregate{Interrupted: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.readings); got != tt.want {
				t.Errorf("Fold() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFold_TotalIsSumOfContributingUnits(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	states := []device.ChargeState{device.Charging, device.Discharging, device.ChargeOther}

	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		readings := make([]device.UnitReading, 0, n)
		want := 0
		for j := 0; j < n; j++ {
			r := device.UnitReading{
				Unit:     j,
				Presence: device.Presence(rng.Intn(2)),
				State:    states[rng.Intn(len(states))],
				Capacity: rng.Intn(102) - 1,
			}
			if r.Presence == device.Present && r.Capacity != device.CapacityUnknown && r.State != device.Charging {
				want += r.Capacity
			}
			readings = append(readings, r)
		}

		if got := Fold(readings).TotalCapacity; got != want {
			t.Fatalf("Fold(%+v).TotalCapacity = %d, want %d", readings, got, want)
		}
	}
}

func TestAggregate_Decidable(t *testing.T) {
	tests := []struct {
		agg  Aggregate
		want bool
	}{
		{Aggregate{TotalCapacity: 8, DischargingCount: 1}, true},
		{Aggregate{TotalCapacity: 0, DischargingCount: 1}, false},
		{Aggregate{TotalCapacity: 8, DischargingCount: 1, ChargingCount: 1}, false},
		{Aggregate{TotalCapacity: 8}, false},
	}
	for _, tt := range tests {
		if got := tt.agg.Decidable(); got != tt.want {
			t.Errorf("%+v.Decidable() = %v, want %v", tt.agg, got, tt.want)
		}
	}
}
