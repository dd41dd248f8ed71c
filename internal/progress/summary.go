package progress

import (
	"fmt"
	"strings"

	"github.com/droidpilot/droidpilot/internal/types"
)

var statusMarkers = map[types.StepStatus]string{
	types.StatusCompleted:  "✓",
	types.StatusFailed:     "✗",
	types.StatusInProgress: "◐",
	types.StatusPending:    "○",
	types.StatusSkipped:    "↷",
}

func marker(s types.StepStatus) string {
	if m, ok := statusMarkers[s]; ok {
		return m
	}
	return "?"
}

func kindLabel(k types.StepKind) string {
	if k == types.StepKindRecovery {
		return "recovery"
	}
	return "objective"
}

// Summary renders counts and the current step for external reporting.
// It is side-effect free and must not be used to drive control flow.
func (p *Progress) Summary() string {
	completed := p.CompletedObjectiveCount()
	total := p.TotalObjectiveCount()

	var sb strings.Builder
	if total > 0 {
		fmt.Fprintf(&sb, "Objectives: %d/%d completed (%.0f%%)\n", completed, total, float64(completed)/float64(total)*100)
	} else {
		sb.WriteString("Objectives: 0/0\n")
	}

	if current, err := p.CurrentStep(); err == nil {
		fmt.Fprintf(&sb, "Current: [%s] %s (%s)\n", kindLabel(current.Kind), current.Description, current.Status)
		if current.Kind == types.StepKindRecovery {
			fmt.Fprintf(&sb, "Blocked by: %s (parent step #%d)\n", current.BlockingReason, *current.ParentIndex)
		}
	}

	sb.WriteString("Steps:\n")
	for _, s := range p.steps {
		cursorMark := ""
		if s.Index == p.cursor {
			cursorMark = "  <- current"
		}
		fmt.Fprintf(&sb, "  %s [%d] (%s) %s%s\n", marker(s.Status), s.Index, kindLabel(s.Kind), s.Description, cursorMark)
	}
	return sb.String()
}

// RenderForOracle formats the full progress state for the reasoning oracle:
// the step list with status markers plus the current step's plan position.
func (p *Progress) RenderForOracle() string {
	completed := p.CompletedObjectiveCount()
	total := p.TotalObjectiveCount()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Objective progress: %d/%d completed\n\nObjective steps:\n", completed, total)
	for _, s := range p.steps {
		currentMark := ""
		if s.Index == p.cursor {
			currentMark = "  <- current objective"
		}
		fmt.Fprintf(&sb, "  %s [%d] (%s) %s%s\n", marker(s.Status), s.Index, kindLabel(s.Kind), s.Description, currentMark)
	}

	current, err := p.CurrentStep()
	if err != nil || len(current.Plan) == 0 {
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nExecution plan for current step (%d/%d actions done):\n", current.PlanCursor, len(current.Plan))
	for i, action := range current.Plan {
		switch {
		case i < current.PlanCursor:
			fmt.Fprintf(&sb, "  [done] %d. %s\n", i+1, action)
		case i == current.PlanCursor:
			fmt.Fprintf(&sb, "  [next] %d. %s\n", i+1, action)
		default:
			fmt.Fprintf(&sb, "  [    ] %d. %s\n", i+1, action)
		}
	}
	if current.PlanExhausted() {
		sb.WriteString("  all planned actions executed\n")
	}
	return sb.String()
}
