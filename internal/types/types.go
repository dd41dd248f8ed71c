package types

import (
	"fmt"
	"time"
)

// ExecutedAction is an append-only audit record of one device action.
// It is never mutated after creation.
type ExecutedAction struct {
	Action    string    `json:"action"`    // What was attempted
	Tool      string    `json:"tool"`      // Device tool used (e.g. "tap", "send_keys")
	Result    string    `json:"result"`    // Executor's diagnostic detail
	Success   bool      `json:"success"`   // Whether the executor reported success
	Timestamp time.Time `json:"timestamp"` // When the action was executed
}

// ObjectiveStep is one goal in a test run: either a user-stated objective or
// a recovery detour inserted to clear an obstruction before resuming one.
type ObjectiveStep struct {
	Index       int        `json:"index"`       // Position in the step list; always equals list position
	Description string     `json:"description"` // Goal or recovery intent, opaque to the engine
	Kind        StepKind   `json:"kind"`        // objective or recovery
	Status      StepStatus `json:"status"`      // Uses unified StepStatus enum

	Plan       []string         `json:"plan"`        // Current execution plan; replaceable
	PlanCursor int              `json:"plan_cursor"` // How far into Plan execution has progressed
	History    []ExecutedAction `json:"history"`     // Append-only execution history

	// Recovery-only fields
	ParentIndex    *int   `json:"parent_index,omitempty"`    // Objective step this detour protects
	BlockingReason string `json:"blocking_reason,omitempty"` // Why the parent was blocked

	CompletionEvidence string `json:"completion_evidence,omitempty"` // Set when status becomes completed
}

// Validate ensures the step is structurally sound
func (s *ObjectiveStep) Validate() error {
	if s.Index < 0 {
		return fmt.Errorf("step.index: must be non-negative")
	}
	if s.Description == "" {
		return fmt.Errorf("step.description: field is required")
	}
	if s.Kind == "" {
		s.Kind = StepKindObjective // Default to objective
	}
	if !s.Kind.IsValid() {
		return fmt.Errorf("step.kind: invalid value %q, must be one of: %v", s.Kind, AllStepKinds())
	}
	if s.Status == "" {
		s.Status = StatusPending // Default to pending
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("step.status: invalid value %q, must be one of: %v", s.Status, AllStepStatuses())
	}
	if s.Kind == StepKindRecovery && s.ParentIndex == nil {
		return fmt.Errorf("step.parent_index: field is required for recovery steps")
	}
	if s.Kind == StepKindObjective && s.ParentIndex != nil {
		return fmt.Errorf("step.parent_index: must not be set on objective steps")
	}
	if s.PlanCursor < 0 || s.PlanCursor > len(s.Plan) {
		return fmt.Errorf("step.plan_cursor: %d out of range for plan of %d actions", s.PlanCursor, len(s.Plan))
	}
	return nil
}

// SetPlan replaces the step's execution plan and restarts its cursor
func (s *ObjectiveStep) SetPlan(plan []string) {
	s.Plan = plan
	s.PlanCursor = 0
}

// RemainingPlan returns the not-yet-executed tail of the plan
func (s *ObjectiveStep) RemainingPlan() []string {
	if s.PlanCursor >= len(s.Plan) {
		return nil
	}
	return s.Plan[s.PlanCursor:]
}

// AdvancePlan moves the plan cursor past the current action.
// Returns false when the plan is already exhausted.
func (s *ObjectiveStep) AdvancePlan() bool {
	if s.PlanCursor < len(s.Plan) {
		s.PlanCursor++
		return true
	}
	return false
}

// PlanExhausted reports whether every planned action has been executed
func (s *ObjectiveStep) PlanExhausted() bool {
	return s.PlanCursor >= len(s.Plan)
}

// RecordAction appends an executed action to the step's history
func (s *ObjectiveStep) RecordAction(action, tool, result string, success bool) {
	s.History = append(s.History, ExecutedAction{
		Action:    action,
		Tool:      tool,
		Result:    result,
		Success:   success,
		Timestamp: time.Now(),
	})
}
