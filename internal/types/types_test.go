package types

import (
	"strings"
	"testing"
)

func TestObjectiveStepValidate(t *testing.T) {
	parent := 0

	tests := []struct {
		name    string
		step    ObjectiveStep
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid objective step",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      StatusPending,
			},
			wantErr: false,
		},
		{
			name: "empty kind defaults to objective",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        "",
				Status:      StatusPending,
			},
			wantErr: false,
		},
		{
			name: "empty status defaults to pending",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      "",
			},
			wantErr: false,
		},
		{
			name: "valid recovery step",
			step: ObjectiveStep{
				Index:          1,
				Description:    "Dismiss the consent dialog",
				Kind:           StepKindRecovery,
				Status:         StatusPending,
				ParentIndex:    &parent,
				BlockingReason: "consent dialog covers the screen",
			},
			wantErr: false,
		},
		{
			name: "negative index",
			step: ObjectiveStep{
				Index:       -1,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      StatusPending,
			},
			wantErr: true,
			errMsg:  "step.index: must be non-negative",
		},
		{
			name: "missing description",
			step: ObjectiveStep{
				Index:       0,
				Description: "",
				Kind:        StepKindObjective,
				Status:      StatusPending,
			},
			wantErr: true,
			errMsg:  "step.description: field is required",
		},
		{
			name: "invalid kind",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKind("detour"),
				Status:      StatusPending,
			},
			wantErr: true,
			errMsg:  "step.kind: invalid value",
		},
		{
			name: "invalid status",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      StepStatus("paused"),
			},
			wantErr: true,
			errMsg:  "step.status: invalid value",
		},
		{
			name: "recovery without parent",
			step: ObjectiveStep{
				Index:       1,
				Description: "Dismiss the consent dialog",
				Kind:        StepKindRecovery,
				Status:      StatusPending,
			},
			wantErr: true,
			errMsg:  "step.parent_index: field is required for recovery steps",
		},
		{
			name: "objective with parent",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      StatusPending,
				ParentIndex: &parent,
			},
			wantErr: true,
			errMsg:  "step.parent_index: must not be set on objective steps",
		},
		{
			name: "cursor beyond plan",
			step: ObjectiveStep{
				Index:       0,
				Description: "Open the settings screen",
				Kind:        StepKindObjective,
				Status:      StatusPending,
				Plan:        []string{"tap Settings"},
				PlanCursor:  2,
			},
			wantErr: true,
			errMsg:  "step.plan_cursor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("ObjectiveStep.Validate() expected error containing %q, got nil", tt.errMsg)
					return
				}
				if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("ObjectiveStep.Validate() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("ObjectiveStep.Validate() unexpected error = %v", err)
				}
			}
		})
	}
}

func TestPlanCursor(t *testing.T) {
	step := ObjectiveStep{
		Index:       0,
		Description: "Send a message",
		Kind:        StepKindObjective,
		Status:      StatusInProgress,
	}

	step.SetPlan([]string{"tap compose", "type hello", "tap send"})
	if step.PlanCursor != 0 {
		t.Errorf("SetPlan() cursor = %d, want 0", step.PlanCursor)
	}
	if step.PlanExhausted() {
		t.Error("PlanExhausted() = true for a fresh plan")
	}
	if got := len(step.RemainingPlan()); got != 3 {
		t.Errorf("RemainingPlan() length = %d, want 3", got)
	}

	if !step.AdvancePlan() {
		t.Error("AdvancePlan() = false with actions remaining")
	}
	if got := step.RemainingPlan(); len(got) != 2 || got[0] != "type hello" {
		t.Errorf("RemainingPlan() after advance = %v, want tail starting at second action", got)
	}

	step.AdvancePlan()
	step.AdvancePlan()
	if !step.PlanExhausted() {
		t.Error("PlanExhausted() = false after advancing past every action")
	}
	if step.AdvancePlan() {
		t.Error("AdvancePlan() = true on an exhausted plan")
	}
	if step.RemainingPlan() != nil {
		t.Errorf("RemainingPlan() on exhausted plan = %v, want nil", step.RemainingPlan())
	}

	// Replacing the plan restarts the cursor
	step.SetPlan([]string{"tap retry"})
	if step.PlanCursor != 0 || step.PlanExhausted() {
		t.Errorf("SetPlan() did not restart cursor: cursor=%d", step.PlanCursor)
	}
}

func TestRecordAction(t *testing.T) {
	step := ObjectiveStep{Index: 0, Description: "Log in", Kind: StepKindObjective}

	step.RecordAction("tap login", "tap", "ok", true)
	step.RecordAction("tap login", "tap", "element not found", false)

	if len(step.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(step.History))
	}
	if !step.History[0].Success || step.History[1].Success {
		t.Error("History success flags not preserved in order")
	}
	if step.History[1].Result != "element not found" {
		t.Errorf("History[1].Result = %q, want %q", step.History[1].Result, "element not found")
	}
	if step.History[0].Timestamp.IsZero() {
		t.Error("RecordAction() left Timestamp zero")
	}
}

func TestStepStatusIsTerminal(t *testing.T) {
	terminal := map[StepStatus]bool{
		StatusPending:    false,
		StatusInProgress: false,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusSkipped:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
