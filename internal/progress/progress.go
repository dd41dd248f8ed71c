// Package progress tracks one test run's objective steps: the ordered ledger
// of user goals and recovery detours, the cursor, and the structural
// operations the replan controller mutates it with.
package progress

import (
	"fmt"
	"strings"

	"github.com/droidpilot/droidpilot/internal/types"
)

// Progress is the mutable ledger of all steps for one test run.
// It is owned by a single run and never shared across runs.
type Progress struct {
	// OriginalGoal is the user's raw goal text, immutable after creation
	OriginalGoal string

	steps  []*types.ObjectiveStep
	cursor int
}

// New creates a Progress from the parsed goal list. Every step starts
// pending and the cursor sits on the first step.
func New(goalText string, goals []string) (*Progress, error) {
	if len(goals) == 0 {
		return nil, fmt.Errorf("cannot create progress: %w", ErrEmptyProgress)
	}
	p := &Progress{OriginalGoal: goalText}
	for i, goal := range goals {
		if strings.TrimSpace(goal) == "" {
			return nil, fmt.Errorf("goal %d: description is empty", i)
		}
		p.steps = append(p.steps, &types.ObjectiveStep{
			Index:       i,
			Description: goal,
			Kind:        types.StepKindObjective,
			Status:      types.StatusPending,
		})
	}
	return p, nil
}

// Steps returns the full ordered step list, objective and recovery alike
func (p *Progress) Steps() []*types.ObjectiveStep {
	return p.steps
}

// Cursor returns the index of the step currently being worked
func (p *Progress) Cursor() int {
	return p.cursor
}

// CurrentStep returns the step at the cursor
func (p *Progress) CurrentStep() (*types.ObjectiveStep, error) {
	if len(p.steps) == 0 {
		return nil, ErrEmptyProgress
	}
	return p.steps[p.cursor], nil
}

// ObjectivesOnly returns the objective-kind steps in list order,
// excluding recovery detours
func (p *Progress) ObjectivesOnly() []*types.ObjectiveStep {
	var out []*types.ObjectiveStep
	for _, s := range p.steps {
		if s.Kind == types.StepKindObjective {
			out = append(out, s)
		}
	}
	return out
}

// CompletedObjectiveCount counts completed objective-kind steps.
// Recovery steps never contribute; they are not part of the user's goal.
func (p *Progress) CompletedObjectiveCount() int {
	n := 0
	for _, s := range p.steps {
		if s.Kind == types.StepKindObjective && s.Status == types.StatusCompleted {
			n++
		}
	}
	return n
}

// TotalObjectiveCount counts all objective-kind steps. It only changes at
// construction time; recovery insertion never touches the denominator.
func (p *Progress) TotalObjectiveCount() int {
	return len(p.ObjectivesOnly())
}

// AllObjectivesCompleted reports whether every objective step is completed
func (p *Progress) AllObjectivesCompleted() bool {
	objectives := p.ObjectivesOnly()
	if len(objectives) == 0 {
		return false
	}
	for _, s := range objectives {
		if s.Status != types.StatusCompleted {
			return false
		}
	}
	return true
}

// InsertRecovery constructs a recovery step and inserts it immediately after
// the cursor, re-sequencing indices from the insertion point onward. The
// cursor does not move. The parent must be an objective-kind step.
func (p *Progress) InsertRecovery(parentIndex int, description, blockingReason string, plan []string) (int, error) {
	if len(p.steps) == 0 {
		return 0, ErrEmptyProgress
	}
	if parentIndex < 0 || parentIndex >= len(p.steps) {
		return 0, fmt.Errorf("parent index %d out of range [0,%d)", parentIndex, len(p.steps))
	}
	if p.steps[parentIndex].Kind != types.StepKindObjective {
		return 0, fmt.Errorf("parent %d: %w", parentIndex, ErrParentNotObjective)
	}

	insertAt := p.cursor + 1
	parent := parentIndex
	step := &types.ObjectiveStep{
		Index:          insertAt,
		Description:    description,
		Kind:           types.StepKindRecovery,
		Status:         types.StatusPending,
		Plan:           plan,
		ParentIndex:    &parent,
		BlockingReason: blockingReason,
	}
	p.steps = append(p.steps, nil)
	copy(p.steps[insertAt+1:], p.steps[insertAt:])
	p.steps[insertAt] = step
	p.resequence(insertAt)
	return insertAt, nil
}

// Advance moves the cursor to the next unfinished objective step and marks
// it in_progress. Recovery detours and steps already in a terminal status
// are skipped: a resolved detour stays resolved, and a completed objective
// is never re-activated. Returns false without moving when no unfinished
// objective remains.
func (p *Progress) Advance() bool {
	for i := p.cursor + 1; i < len(p.steps); i++ {
		s := p.steps[i]
		if s.Kind != types.StepKindObjective || s.Status.IsTerminal() {
			continue
		}
		p.cursor = i
		s.Status = types.StatusInProgress
		return true
	}
	return false
}

// MoveCursorTo points the cursor at the given step and marks it in_progress.
// Used after inserting a recovery step to begin working the detour.
func (p *Progress) MoveCursorTo(index int) error {
	if index < 0 || index >= len(p.steps) {
		return fmt.Errorf("cursor target %d out of range [0,%d)", index, len(p.steps))
	}
	p.cursor = index
	p.steps[p.cursor].Status = types.StatusInProgress
	return nil
}

// ReturnToParent resolves a finished recovery detour: it marks the parent
// objective in_progress again and moves the cursor back to it. Returns false
// when the current step is not a recovery step with a parent; callers should
// treat that as a logic error, not silently ignore it.
func (p *Progress) ReturnToParent() bool {
	current, err := p.CurrentStep()
	if err != nil {
		return false
	}
	if current.Kind != types.StepKindRecovery || current.ParentIndex == nil {
		return false
	}
	parentIdx := *current.ParentIndex
	if parentIdx < 0 || parentIdx >= len(p.steps) {
		return false
	}
	p.steps[parentIdx].Status = types.StatusInProgress
	p.cursor = parentIdx
	return true
}

// MarkCurrentInProgress flags the step at the cursor as the active one
func (p *Progress) MarkCurrentInProgress() {
	if current, err := p.CurrentStep(); err == nil {
		current.Status = types.StatusInProgress
	}
}

// MarkCurrentCompleted records completion evidence on the current step
func (p *Progress) MarkCurrentCompleted(evidence string) {
	if current, err := p.CurrentStep(); err == nil {
		current.Status = types.StatusCompleted
		current.CompletionEvidence = evidence
	}
}

// MarkCurrentFailed records a failure reason on the current step
func (p *Progress) MarkCurrentFailed(reason string) {
	if current, err := p.CurrentStep(); err == nil {
		current.Status = types.StatusFailed
		current.CompletionEvidence = reason
	}
}

// SetCurrentPlan replaces the current step's plan, restarting its cursor
func (p *Progress) SetCurrentPlan(plan []string) {
	if current, err := p.CurrentStep(); err == nil {
		current.SetPlan(plan)
	}
}

// resequence rewrites Index so that steps[i].Index == i from the given
// position onward. Idempotent: a second pass changes nothing.
func (p *Progress) resequence(from int) {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(p.steps); i++ {
		p.steps[i].Index = i
	}
}

// Snapshot returns a deep copy for external reporting. Mutating the copy
// never touches the live ledger.
func (p *Progress) Snapshot() *Progress {
	clone := &Progress{
		OriginalGoal: p.OriginalGoal,
		cursor:       p.cursor,
	}
	for _, s := range p.steps {
		cs := *s
		cs.Plan = append([]string(nil), s.Plan...)
		cs.History = append([]types.ExecutedAction(nil), s.History...)
		if s.ParentIndex != nil {
			parent := *s.ParentIndex
			cs.ParentIndex = &parent
		}
		clone.steps = append(clone.steps, &cs)
	}
	return clone
}
