// Package monitor runs the battery sampling and decision loop.
package monitor

import (
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/battmond/pkg/alert"
	"github.com/charlie0129/battmond/pkg/config"
	"github.com/charlie0129/battmond/pkg/device"
	"github.com/charlie0129/battmond/pkg/halt"
)

const recentRecordCount = 60

// Snapshot is the state published after each cycle.
type Snapshot struct {
	Time       time.Time            `json:"time"`
	Cycles     uint64               `json:"cycles"`
	Readings   []device.UnitReading `json:"readings"`
	Aggregate  Aggregate            `json:"aggregate"`
	State      State                `json:"state"`
	LastAction Action               `json:"lastAction"`
	Recent     []CycleRecord        `json:"recent,omitempty"`
}

// Monitor samples the battery every interval and acts on the result. The
// loop runs on a single goroutine; Snapshot may be called concurrently.
type Monitor struct {
	sampler  *Sampler
	policy   Policy
	executor *Executor
	interval time.Duration
	recorder *Recorder

	// state is only touched by the loop goroutine.
	state State

	mu       sync.RWMutex
	snapshot Snapshot

	sleep func(time.Duration)

	lastPrintTime time.Time
	lastStatus    loopStatus
}

// New builds a Monitor. conf must already be validated and carry the
// resolved device path.
func New(conf config.Config, dev device.Device, notifier alert.Notifier, halter halt.Halter) *Monitor {
	return &Monitor{
		sampler: NewSampler(dev, conf.DevicePath),
		policy: Policy{
			WarnPercent: conf.WarnPercent,
			HaltPercent: conf.HaltPercent,
		},
		executor: &Executor{
			Notifier: notifier,
			Halter:   halter,
		},
		interval: conf.Interval,
		recorder: NewRecorder(recentRecordCount, conf.Interval),
		state:    StateNormal,
		sleep:    time.Sleep,
	}
}

// Run loops until the halt action has been dispatched or the device can
// no longer be opened. It returns nil after a halt request that did not
// replace the process, and the error otherwise.
func (m *Monitor) Run() error {
	logrus.Debugln("monitor loop starts")

	for {
		action, err := m.Cycle()
		if err != nil {
			return err
		}
		if action == ActionHalt {
			return nil
		}
		m.sleep(m.interval)
	}
}

// Cycle runs one sample-decide-act iteration.
func (m *Monitor) Cycle() (Action, error) {
	readings, err := m.sampler.Sample()
	if err != nil {
		return ActionNone, err
	}

	agg := Fold(readings)
	next, action := m.policy.Next(m.state, agg)
	m.state = next

	m.printStatus(readings, agg, action)
	m.checkMissedCycles()
	m.publish(readings, agg, action)

	if action != ActionNone {
		logrus.WithFields(logrus.Fields{
			"totalCapacity": agg.TotalCapacity,
			"warnPercent":   m.policy.WarnPercent,
			"haltPercent":   m.policy.HaltPercent,
		}).Infof("battery policy decided to %s", action)
	}

	if err := m.executor.Execute(action); err != nil {
		return action, err
	}
	return action, nil
}

// State returns the current alert state.
func (m *Monitor) State() State {
	return m.state
}

// Snapshot returns the state published by the last cycle.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.Readings = append([]device.UnitReading(nil), s.Readings...)
	s.Recent = m.recorder.GetRecords()
	return s
}

func (m *Monitor) publish(readings []device.UnitReading, agg Aggregate, action Action) {
	now := time.Now()

	m.recorder.Add(CycleRecord{
		Time:          now,
		TotalCapacity: agg.TotalCapacity,
		State:         m.state,
		Action:        action,
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = Snapshot{
		Time:       now.Round(0),
		Cycles:     m.snapshot.Cycles + 1,
		Readings:   readings,
		Aggregate:  agg,
		State:      m.state,
		LastAction: action,
	}
}

// checkMissedCycles logs when fewer cycles than expected ran recently,
// which usually means the system was asleep.
func (m *Monitor) checkMissedCycles() bool {
	if m.interval <= 0 {
		return false
	}

	window := 8 * m.interval
	expected := int(window / m.interval)
	if len(m.recorder.GetRecords()) < expected {
		return false
	}

	count := m.recorder.GetRecordsIn(window)
	if count < expected-1 {
		logrus.WithFields(logrus.Fields{
			"cycleCount":         count,
			"expectedCycleCount": expected,
		}).Info("possibly missed sampling cycles")
		return true
	}
	return false
}

type loopStatus struct {
	units         int
	totalCapacity int
	discharging   int
	charging      int
	state         State
	action        Action
}

func (m *Monitor) printStatus(readings []device.UnitReading, agg Aggregate, action Action) {
	currentStatus := loopStatus{
		units:         len(readings),
		totalCapacity: agg.TotalCapacity,
		discharging:   agg.DischargingCount,
		charging:      agg.ChargingCount,
		state:         m.state,
		action:        action,
	}

	fields := logrus.Fields{
		"units":         len(readings),
		"totalCapacity": agg.TotalCapacity,
		"discharging":   agg.DischargingCount,
		"charging":      agg.ChargingCount,
		"state":         m.state,
		"action":        action,
	}

	defer func() { m.lastPrintTime = time.Now() }()

	// Skip printing if nothing changed since the last cycle.
	if time.Since(m.lastPrintTime) < m.interval+time.Second && reflect.DeepEqual(m.lastStatus, currentStatus) {
		logrus.WithFields(fields).Trace("monitor loop status")
		return
	}

	logrus.WithFields(fields).Debug("monitor loop status")

	m.lastStatus = currentStatus
}
