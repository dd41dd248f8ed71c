package driver

// State is the run driver's phase
type State string

const (
	// StatePlanning parses goals and builds the first plan
	StatePlanning State = "planning"
	// StateExecuting hands plan actions to the device one at a time
	StateExecuting State = "executing"
	// StateReplanning consults the replan controller
	StateReplanning State = "replanning"
	// StateDone is terminal success
	StateDone State = "done"
	// StateFailed is terminal failure
	StateFailed State = "failed"
)

// IsValid checks if a state value is valid
func (s State) IsValid() bool {
	for _, valid := range AllStates() {
		if s == valid {
			return true
		}
	}
	return false
}

// AllStates returns all valid state values
func AllStates() []State {
	return []State{StatePlanning, StateExecuting, StateReplanning, StateDone, StateFailed}
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether the run is over
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}
