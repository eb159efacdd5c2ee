package monitor

import (
	"time"

	"github.com/charlie0129/battmond/pkg/alert"
	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/device"
	"github.com/charlie0129/battmond/pkg/halt"
)

func unit(state device.ChargeState, capacity int) device.UnitReading {
	return device.UnitReading{Presence: device.Present, State: state, Capacity: capacity}
}

func absent() device.UnitReading {
	return device.UnitReading{Presence: device.NotPresent, Capacity: device.CapacityUnknown}
}

// dischargingFrame is one cycle with a single discharging unit per capacity.
func dischargingFrame(capacities ...int) device.FakeFrame {
	var readings []device.UnitReading
	for _, c := range capacities {
		readings = append(readings, unit(device.Discharging, c))
	}
	return device.FakeFrame{Readings: readings}
}

func testConfig() config.Config {
	c := config.Default()
	c.DevicePath = "/dev/fake-battery"
	c.Interval = time.Second
	return c
}

type testMonitor struct {
	*Monitor
	dev      *device.Fake
	notifier *alert.Recorder
	halter   *halt.Recorder
	sleeps   int
}

func newTestMonitor(frames ...device.FakeFrame) *testMonitor {
	tm := &testMonitor{
		dev:      device.NewFake(frames...),
		notifier: &alert.Recorder{},
		halter:   &halt.Recorder{},
	}
	tm.Monitor = New(testConfig(), tm.dev, tm.notifier, tm.halter)
	tm.Monitor.sleep = func(time.Duration) { tm.sleeps++ }
	return tm
}
