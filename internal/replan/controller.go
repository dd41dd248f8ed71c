// Package replan holds the control loop's decision core: each tick it takes
// the oracle's state assessment, classifies the situation into exactly one
// transition, and mutates the progress ledger accordingly.
package replan

import (
	"context"
	"fmt"
	"strconv"

	"github.com/droidpilot/droidpilot/internal/events"
	"github.com/droidpilot/droidpilot/internal/oracle"
	"github.com/droidpilot/droidpilot/internal/planner"
	"github.com/droidpilot/droidpilot/internal/progress"
	"github.com/droidpilot/droidpilot/internal/types"
)

// DefectError aborts the run: the assessment reported an app defect with
// nothing blocking, so no recovery detour can help.
type DefectError struct {
	Reason string
	Stuck  bool
}

// Error implements the error interface
func (e *DefectError) Error() string {
	if e.Stuck {
		return fmt.Sprintf("app defect: %s (stuck: no screen change across repeated actions)", e.Reason)
	}
	return "app defect: " + e.Reason
}

// Controller classifies assessments and mutates the progress ledger. It is
// the only mutator of step statuses and the cursor during a run.
type Controller struct {
	oracle  oracle.Oracle
	builder *planner.Builder
	emitter *events.Emitter
}

// New creates a replan controller
func New(o oracle.Oracle, b *planner.Builder, emitter *events.Emitter) *Controller {
	return &Controller{oracle: o, builder: b, emitter: emitter}
}

// Tick runs one replan: it obtains a fresh assessment from the oracle and
// applies the classification to the ledger
func (c *Controller) Tick(ctx context.Context, prog *progress.Progress, screen oracle.ScreenContext) (Outcome, error) {
	assessment, err := c.oracle.AssessState(ctx, prog.RenderForOracle(), screen)
	if err != nil {
		return "", err
	}
	return c.Apply(ctx, prog, assessment, screen)
}

// Apply classifies the assessment into one transition and mutates the
// ledger. Evaluation order is deliberate: block-detection pre-empts
// objective-completion judgement, because a dialog can make a step look
// complete while actually obstructing it.
func (c *Controller) Apply(ctx context.Context, prog *progress.Progress, assessment *oracle.Assessment, screen oracle.ScreenContext) (Outcome, error) {
	if assessment == nil {
		return "", fmt.Errorf("unclassifiable: nil assessment")
	}
	current, err := prog.CurrentStep()
	if err != nil {
		return "", err
	}

	// An app defect with nothing blocking is unrecoverable: no detour can
	// clear a crash or a frozen screen
	if assessment.DefectDetected && assessment.Blocking == nil {
		return "", &DefectError{Reason: assessment.DefectReason, Stuck: assessment.Stuck}
	}

	// Case 1: block detected. Skipped when the block is one of the
	// objective's own declared targets (the oracle says so), or when the
	// current step is already a recovery detour handling it.
	if assessment.Blocking != nil && !assessment.BlockExpected && current.Kind != types.StepKindRecovery {
		return c.insertRecovery(ctx, prog, current, assessment.Blocking, screen)
	}

	// Case 2: current objective achieved
	if current.Kind == types.StepKindObjective && assessment.ObjectiveAchieved {
		return c.completeObjective(ctx, prog, current, assessment.Evidence, screen)
	}

	// Case 4: the detour is done, by achievement or by running out of plan
	if current.Kind == types.StepKindRecovery && (assessment.ObjectiveAchieved || current.PlanExhausted()) {
		return c.resolveRecovery(ctx, prog, current, assessment.Evidence, screen)
	}

	// Case 5: terminal guard, independent of case 2
	if prog.AllObjectivesCompleted() {
		return OutcomeRunComplete, nil
	}

	// Case 3: not achieved, nothing blocking — revise the plan and carry on
	return c.revisePlan(ctx, prog, current, screen)
}

func (c *Controller) insertRecovery(ctx context.Context, prog *progress.Progress, current *types.ObjectiveStep, blocking *oracle.Blocking, screen oracle.ScreenContext) (Outcome, error) {
	description := "Clear obstruction: " + blocking.Reason
	if blocking.DismissHint != "" {
		description += " (dismiss via " + blocking.DismissHint + ")"
	}

	idx, err := prog.InsertRecovery(current.Index, description, blocking.Reason, nil)
	if err != nil {
		return "", err
	}
	if err := prog.MoveCursorTo(idx); err != nil {
		return "", err
	}

	detour, err := prog.CurrentStep()
	if err != nil {
		return "", err
	}
	plan, err := c.builder.BuildPlanFor(ctx, detour, screen)
	if err != nil {
		return "", err
	}
	prog.SetCurrentPlan(plan)

	c.emitter.Emit(events.KindRecoveryInserted, map[string]string{
		"index":  strconv.Itoa(idx),
		"parent": strconv.Itoa(current.Index),
		"reason": blocking.Reason,
	})
	c.emitter.Emit(events.KindPlanBuilt, map[string]string{
		"step":    strconv.Itoa(idx),
		"actions": strconv.Itoa(len(plan)),
	})
	return OutcomeRecoveryInserted, nil
}

func (c *Controller) completeObjective(ctx context.Context, prog *progress.Progress, current *types.ObjectiveStep, evidence string, screen oracle.ScreenContext) (Outcome, error) {
	prog.MarkCurrentCompleted(evidence)
	c.emitter.Emit(events.KindObjectiveAchieved, map[string]string{
		"index":     strconv.Itoa(current.Index),
		"completed": strconv.Itoa(prog.CompletedObjectiveCount()),
		"total":     strconv.Itoa(prog.TotalObjectiveCount()),
	})

	if !prog.Advance() {
		return OutcomeRunComplete, nil
	}

	next, err := prog.CurrentStep()
	if err != nil {
		return "", err
	}
	c.emitter.Emit(events.KindStepAdvanced, map[string]string{
		"index": strconv.Itoa(next.Index),
	})

	plan, err := c.builder.BuildPlanFor(ctx, next, screen)
	if err != nil {
		return "", err
	}
	prog.SetCurrentPlan(plan)
	c.emitter.Emit(events.KindPlanBuilt, map[string]string{
		"step":    strconv.Itoa(next.Index),
		"actions": strconv.Itoa(len(plan)),
	})
	return OutcomeObjectiveAchieved, nil
}

func (c *Controller) resolveRecovery(ctx context.Context, prog *progress.Progress, current *types.ObjectiveStep, evidence string, screen oracle.ScreenContext) (Outcome, error) {
	prog.MarkCurrentCompleted(evidence)
	if !prog.ReturnToParent() {
		// Callers must not reach here with a well-formed ledger; surface it
		return "", fmt.Errorf("recovery step %d has no parent to return to", current.Index)
	}

	parent, err := prog.CurrentStep()
	if err != nil {
		return "", err
	}
	c.emitter.Emit(events.KindRecoveryResolved, map[string]string{
		"index":  strconv.Itoa(current.Index),
		"parent": strconv.Itoa(parent.Index),
	})

	plan, err := c.builder.BuildPlanFor(ctx, parent, screen)
	if err != nil {
		return "", err
	}
	prog.SetCurrentPlan(plan)
	c.emitter.Emit(events.KindPlanBuilt, map[string]string{
		"step":    strconv.Itoa(parent.Index),
		"actions": strconv.Itoa(len(plan)),
	})
	return OutcomeRecoveryResolved, nil
}

func (c *Controller) revisePlan(ctx context.Context, prog *progress.Progress, current *types.ObjectiveStep, screen oracle.ScreenContext) (Outcome, error) {
	plan, err := c.builder.BuildPlanFor(ctx, current, screen)
	if err != nil {
		return "", err
	}
	prog.SetCurrentPlan(plan)
	c.emitter.Emit(events.KindPlanBuilt, map[string]string{
		"step":    strconv.Itoa(current.Index),
		"actions": strconv.Itoa(len(plan)),
	})
	return OutcomeReplanned, nil
}
