package types

// StepKind distinguishes user-stated goals from synthetic detours
type StepKind string

const (
	// StepKindObjective originates from the user's goal list
	StepKindObjective StepKind = "objective"
	// StepKindRecovery is a temporary detour inserted to clear an obstruction
	StepKindRecovery StepKind = "recovery"
)

// IsValid checks if a step kind is valid
func (k StepKind) IsValid() bool {
	for _, valid := range AllStepKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// AllStepKinds returns all valid step kind values
func AllStepKinds() []StepKind {
	return []StepKind{StepKindObjective, StepKindRecovery}
}

// String returns the string representation of the step kind
func (k StepKind) String() string {
	return string(k)
}

// StepStatus represents the execution status of an objective or recovery step
type StepStatus string

const (
	// StatusPending indicates the step has not started
	StatusPending StepStatus = "pending"
	// StatusInProgress indicates the step is the one currently being worked
	StatusInProgress StepStatus = "in_progress"
	// StatusCompleted indicates the step's goal was achieved
	StatusCompleted StepStatus = "completed"
	// StatusFailed indicates the step could not be achieved
	StatusFailed StepStatus = "failed"
	// StatusSkipped indicates the step was deliberately bypassed
	StatusSkipped StepStatus = "skipped"
)

// IsValid checks if a status value is valid
func (s StepStatus) IsValid() bool {
	for _, valid := range AllStepStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// AllStepStatuses returns all valid status values
func AllStepStatuses() []StepStatus {
	return []StepStatus{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped}
}

// String returns the string representation of the status
func (s StepStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the cursor may move past a step in this status
func (s StepStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Verdict is the overall pass/fail judgement for a finished run
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// IsValid checks if a verdict value is valid
func (v Verdict) IsValid() bool {
	return v == VerdictPass || v == VerdictFail
}

// String returns the string representation of the verdict
func (v Verdict) String() string {
	return string(v)
}
