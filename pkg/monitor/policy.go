package monitor

import "fmt"

// State is the alert state carried between cycles.
type State int

const (
	StateNormal State = iota
	StateWarned
)

func (s State) String() string {
	if s == StateWarned {
		return "warned"
	}
	return "normal"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "normal":
		*s = StateNormal
	case "warned":
		*s = StateWarned
	default:
		return fmt.Errorf("unknown alert state %q", string(b))
	}
	return nil
}

// Action is what the policy wants done after a cycle.
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	// ActionHalt is terminal.
	ActionHalt
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionHalt:
		return "halt"
	default:
		return "none"
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none":
		*a = ActionNone
	case "warn":
		*a = ActionWarn
	case "halt":
		*a = ActionHalt
	default:
		return fmt.Errorf("unknown action %q", string(b))
	}
	return nil
}

// Policy compares aggregated capacity against the warn and halt thresholds.
// HaltPercent must be lower than WarnPercent.
type Policy struct {
	WarnPercent int
	HaltPercent int
}

// Next returns the state and action for one cycle. A warning is only
// emitted on entering the warn range; the halt check comes first.
func (p Policy) Next(s State, a Aggregate) (State, Action) {
	if a.Interrupted {
		s = StateNormal
	}

	if !a.Decidable() {
		return s, ActionNone
	}

	switch {
	case a.TotalCapacity <= p.HaltPercent:
		return s, ActionHalt
	case a.TotalCapacity <= p.WarnPercent:
		if s == StateWarned {
			return s, ActionNone
		}
		return StateWarned, ActionWarn
	default:
		return StateNormal, ActionNone
	}
}
