// Package events carries run observability out of the engine. The engine
// emits an event after every structural mutation of the progress ledger and
// every driver state transition; where the events go (console, file, report
// service) is entirely the sink's concern.
package events

import "time"

// Kind identifies what happened. The vocabulary is closed.
type Kind string

const (
	KindRunStarted        Kind = "RUN_STARTED"
	KindStateChanged      Kind = "STATE_CHANGED"
	KindPlanBuilt         Kind = "PLAN_BUILT"
	KindActionExecuted    Kind = "ACTION_EXECUTED"
	KindStepAdvanced      Kind = "STEP_ADVANCED"
	KindRecoveryInserted  Kind = "RECOVERY_INSERTED"
	KindRecoveryResolved  Kind = "RECOVERY_RESOLVED"
	KindObjectiveAchieved Kind = "OBJECTIVE_ACHIEVED"
	KindRunDone           Kind = "RUN_DONE"
	KindRunFailed         Kind = "RUN_FAILED"
)

// IsValid checks if an event kind is valid
func (k Kind) IsValid() bool {
	for _, valid := range AllKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// AllKinds returns all valid event kind values
func AllKinds() []Kind {
	return []Kind{
		KindRunStarted, KindStateChanged, KindPlanBuilt, KindActionExecuted,
		KindStepAdvanced, KindRecoveryInserted, KindRecoveryResolved,
		KindObjectiveAchieved, KindRunDone, KindRunFailed,
	}
}

// String returns the string representation of the event kind
func (k Kind) String() string {
	return string(k)
}

// Event is one observability record
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Kind      Kind              `json:"kind"`
	Payload   map[string]string `json:"payload,omitempty"`
}

// Sink consumes events. Implementations should return quickly; the emitter
// drops events rather than let a slow sink stall the run.
type Sink interface {
	Consume(Event)
}
