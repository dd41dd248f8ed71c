// Package planner turns one objective step into an ordered action list by
// consulting the reasoning oracle. It is a call-and-attach adapter: all the
// intelligence lives behind the oracle contract.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/droidpilot/droidpilot/internal/oracle"
	"github.com/droidpilot/droidpilot/internal/types"
)

// PlanGenerationError indicates the oracle could not produce a usable plan
type PlanGenerationError struct {
	Step string // Description of the step a plan was requested for
	Err  error
}

// Error implements the error interface
func (e *PlanGenerationError) Error() string {
	return fmt.Sprintf("plan generation for %q: %v", e.Step, e.Err)
}

// Unwrap returns the underlying cause
func (e *PlanGenerationError) Unwrap() error {
	return e.Err
}

// Builder builds execution plans for objective steps
type Builder struct {
	oracle     oracle.Oracle
	maxActions int // Upper bound on plan length; 0 means unbounded
}

// NewBuilder creates a plan builder over the given oracle
func NewBuilder(o oracle.Oracle, maxActions int) *Builder {
	return &Builder{oracle: o, maxActions: maxActions}
}

// BuildPlanFor asks the oracle for an ordered action list achieving the
// step. The result is validated before it is returned: a blank action or an
// over-long plan is a PlanGenerationError, never a silent partial plan. An
// explicitly empty plan is legal (the step may already hold on screen).
func (b *Builder) BuildPlanFor(ctx context.Context, step *types.ObjectiveStep, screen oracle.ScreenContext) ([]string, error) {
	actions, err := b.oracle.GeneratePlan(ctx, step.Description, screen)
	if err != nil {
		return nil, &PlanGenerationError{Step: step.Description, Err: err}
	}

	for i, action := range actions {
		if strings.TrimSpace(action) == "" {
			return nil, &PlanGenerationError{
				Step: step.Description,
				Err:  fmt.Errorf("action %d is blank", i),
			}
		}
	}
	if b.maxActions > 0 && len(actions) > b.maxActions {
		return nil, &PlanGenerationError{
			Step: step.Description,
			Err:  fmt.Errorf("plan has %d actions, limit is %d", len(actions), b.maxActions),
		}
	}
	return actions, nil
}
