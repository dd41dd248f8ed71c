package replan

// Outcome is the transition a replan tick resolved to. The set is closed;
// the driver switches over it exhaustively.
type Outcome string

const (
	// OutcomeRecoveryInserted means a blocking condition forced a detour
	OutcomeRecoveryInserted Outcome = "recovery_inserted"
	// OutcomeObjectiveAchieved means the current objective completed and the
	// cursor advanced to the next step
	OutcomeObjectiveAchieved Outcome = "objective_achieved"
	// OutcomeReplanned means the current step got a revised plan
	OutcomeReplanned Outcome = "replanned"
	// OutcomeRecoveryResolved means a detour finished and the cursor
	// returned to its parent objective
	OutcomeRecoveryResolved Outcome = "recovery_resolved"
	// OutcomeRunComplete means every objective step is done; stop the run
	OutcomeRunComplete Outcome = "run_complete"
)

// IsValid checks if an outcome value is valid
func (o Outcome) IsValid() bool {
	for _, valid := range AllOutcomes() {
		if o == valid {
			return true
		}
	}
	return false
}

// AllOutcomes returns all valid outcome values
func AllOutcomes() []Outcome {
	return []Outcome{
		OutcomeRecoveryInserted, OutcomeObjectiveAchieved, OutcomeReplanned,
		OutcomeRecoveryResolved, OutcomeRunComplete,
	}
}

// String returns the string representation of the outcome
func (o Outcome) String() string {
	return string(o)
}
