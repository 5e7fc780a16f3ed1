package element

import "fmt"

// State is an element's playback state. States are totally ordered;
// transitions always move exactly one step.
type State int32

const (
	Stopped State = iota
	Prepared
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Prepared:
		return "prepared"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Valid reports whether s is one of the three playback states.
func (s State) Valid() bool {
	return s >= Stopped && s <= Playing
}

// StepToward returns the adjacent state on the way to target, or s
// itself when already there.
func (s State) StepToward(target State) State {
	switch {
	case target > s:
		return s + 1
	case target < s:
		return s - 1
	default:
		return s
	}
}

// ParseState maps a textual state name to a State.
func ParseState(name string) (State, error) {
	switch name {
	case "stopped":
		return Stopped, nil
	case "prepared":
		return Prepared, nil
	case "playing":
		return Playing, nil
	default:
		return Stopped, fmt.Errorf("element: unknown playback state %q", name)
	}
}
