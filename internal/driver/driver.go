// Package driver runs the outer loop of one test run: alternate "execute the
// current plan" and "replan", enforce the iteration and reconnect budgets,
// and terminate with a result the harness can report.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/droidpilot/droidpilot/internal/device"
	"github.com/droidpilot/droidpilot/internal/events"
	"github.com/droidpilot/droidpilot/internal/oracle"
	"github.com/droidpilot/droidpilot/internal/planner"
	"github.com/droidpilot/droidpilot/internal/progress"
	"github.com/droidpilot/droidpilot/internal/replan"
	"github.com/droidpilot/droidpilot/internal/types"
)

// Config bounds one run
type Config struct {
	MaxReplanIterations int // Replan ticks before the run is forced FAILED
	MaxReconnectRetries int // Device session reconnect attempts per run
}

// DefaultConfig returns the default run bounds
func DefaultConfig() Config {
	return Config{
		MaxReplanIterations: 20,
		MaxReconnectRetries: 2,
	}
}

// Deps are the collaborators a driver needs. Everything is injected at
// construction; a process can host any number of isolated runs.
type Deps struct {
	Parser   oracle.GoalParser
	Oracle   oracle.Oracle
	Builder  *planner.Builder
	Executor device.Executor
	Screen   device.ScreenSource
	Emitter  *events.Emitter
}

// Result is the terminal outcome of a run. A failed run still carries the
// last known progress snapshot so the harness can render
// "N/M objectives completed, stopped because X".
type Result struct {
	RunID      string
	State      State // done or failed
	Verdict    types.Verdict
	Reason     string // Terminal reason, set on failure
	Message    string // Oracle-composed final text, best effort
	Completed  int
	Total      int
	Iterations int
	Progress   *progress.Progress // Snapshot, safe to retain
}

// Driver owns one test run
type Driver struct {
	deps       Deps
	config     Config
	controller *replan.Controller

	runID      string
	state      State
	reconnects int
	iterations int
}

// New creates a driver for a single run
func New(deps Deps, config Config) *Driver {
	if config.MaxReplanIterations <= 0 {
		config.MaxReplanIterations = DefaultConfig().MaxReplanIterations
	}
	if config.MaxReconnectRetries < 0 {
		config.MaxReconnectRetries = DefaultConfig().MaxReconnectRetries
	}
	runID := deps.Emitter.RunID()
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Driver{
		deps:       deps,
		config:     config,
		controller: replan.New(deps.Oracle, deps.Builder, deps.Emitter),
		runID:      runID,
		state:      StatePlanning,
	}
}

// RunID returns this run's identifier
func (d *Driver) RunID() string {
	return d.runID
}

// Run drives the goal text to a terminal result. It never panics or returns
// an error: every failure mode folds into a FAILED result.
func (d *Driver) Run(ctx context.Context, goalText string) *Result {
	d.deps.Emitter.Emit(events.KindRunStarted, map[string]string{"run_id": d.runID})

	prog, err := d.plan(ctx, goalText)
	if err != nil {
		return d.fail(prog, err)
	}

	for {
		if err := d.checkCancelled(ctx); err != nil {
			return d.fail(prog, err)
		}

		d.transition(StateExecuting)
		if err := d.executeCurrentPlan(ctx, prog); err != nil {
			return d.fail(prog, err)
		}

		if err := d.checkCancelled(ctx); err != nil {
			return d.fail(prog, err)
		}

		d.transition(StateReplanning)
		d.iterations++
		if d.iterations > d.config.MaxReplanIterations {
			return d.fail(prog, fmt.Errorf("%w (cap %d)", ErrIterationBudgetExceeded, d.config.MaxReplanIterations))
		}

		screen, err := d.deps.Screen.CaptureScreen(ctx)
		if err != nil {
			if cerr := d.handleConnectivity(ctx, err); cerr != nil {
				return d.fail(prog, cerr)
			}
			continue
		}

		outcome, err := d.controller.Tick(ctx, prog, screen)
		if err != nil {
			return d.fail(prog, err)
		}
		if outcome == replan.OutcomeRunComplete {
			return d.finish(ctx, prog)
		}
	}
}

// plan covers the PLANNING state: parse goals, seed the ledger, pre-evaluate
// already-satisfied objectives, and build the first plan
func (d *Driver) plan(ctx context.Context, goalText string) (*progress.Progress, error) {
	d.transition(StatePlanning)

	goals, err := d.deps.Parser.ParseGoals(ctx, goalText)
	if err != nil {
		return nil, err
	}
	prog, err := progress.New(goalText, goals)
	if err != nil {
		return nil, err
	}
	prog.MarkCurrentInProgress()

	screen, err := d.deps.Screen.CaptureScreen(ctx)
	if err != nil {
		if cerr := d.handleConnectivity(ctx, err); cerr != nil {
			return prog, cerr
		}
		if screen, err = d.deps.Screen.CaptureScreen(ctx); err != nil {
			return prog, err
		}
	}

	// An objective can already hold before anything runs (the app may open
	// on the target screen). Complete such steps up front instead of
	// planning no-op work for them.
	for {
		assessment, err := d.deps.Oracle.AssessState(ctx, prog.RenderForOracle(), screen)
		if err != nil {
			return prog, err
		}
		current, cerr := prog.CurrentStep()
		if cerr != nil {
			return prog, cerr
		}
		if assessment.Blocking != nil || !assessment.ObjectiveAchieved || current.Kind != types.StepKindObjective {
			break
		}
		prog.MarkCurrentCompleted(assessment.Evidence)
		d.deps.Emitter.Emit(events.KindObjectiveAchieved, map[string]string{
			"index":     strconv.Itoa(current.Index),
			"completed": strconv.Itoa(prog.CompletedObjectiveCount()),
			"total":     strconv.Itoa(prog.TotalObjectiveCount()),
		})
		if !prog.Advance() {
			return prog, nil // All objectives pre-satisfied; loop will close out
		}
	}

	current, err := prog.CurrentStep()
	if err != nil {
		return prog, err
	}
	plan, err := d.deps.Builder.BuildPlanFor(ctx, current, screen)
	if err != nil {
		return prog, err
	}
	prog.SetCurrentPlan(plan)
	d.deps.Emitter.Emit(events.KindPlanBuilt, map[string]string{
		"step":    strconv.Itoa(current.Index),
		"actions": strconv.Itoa(len(plan)),
	})
	return prog, nil
}

// executeCurrentPlan runs the current step's remaining actions one at a
// time. A single unsuccessful action is information, not an error: it is
// recorded and execution yields back to replanning.
func (d *Driver) executeCurrentPlan(ctx context.Context, prog *progress.Progress) error {
	current, err := prog.CurrentStep()
	if err != nil {
		return err
	}

	for !current.PlanExhausted() {
		if err := d.checkCancelled(ctx); err != nil {
			return err
		}
		action := current.Plan[current.PlanCursor]

		outcome, err := d.deps.Executor.Execute(ctx, action)
		if err != nil {
			if cerr := d.handleConnectivity(ctx, err); cerr != nil {
				current.RecordAction(action, "", err.Error(), false)
				return cerr
			}
			continue // Session re-established; retry the same action
		}

		current.RecordAction(action, outcome.Tool, outcome.Detail, outcome.Success)
		d.deps.Emitter.Emit(events.KindActionExecuted, map[string]string{
			"step":    strconv.Itoa(current.Index),
			"tool":    outcome.Tool,
			"success": strconv.FormatBool(outcome.Success),
		})

		if !outcome.Success {
			// Leave the plan cursor in place; the controller decides what
			// to do with the failure
			return nil
		}
		current.AdvancePlan()
	}
	return nil
}

// handleConnectivity applies the bounded reconnect policy. It returns nil
// when the session was re-established and the caller should retry, or the
// fatal error when the budget is spent or the failure was not
// connectivity-class.
func (d *Driver) handleConnectivity(ctx context.Context, err error) error {
	var conn *device.ConnectivityError
	if !errors.As(err, &conn) {
		return err
	}
	if d.reconnects >= d.config.MaxReconnectRetries {
		return fmt.Errorf("%w after %d attempts: %v", ErrConnectivityExhausted, d.reconnects, err)
	}
	d.reconnects++
	if rerr := d.deps.Executor.Reconnect(ctx); rerr != nil {
		return d.handleConnectivity(ctx, rerr)
	}
	return nil
}

func (d *Driver) checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancellationRequested, ctx.Err())
	}
	return nil
}

func (d *Driver) transition(next State) {
	if d.state == next {
		return
	}
	from := d.state
	d.state = next
	d.deps.Emitter.Emit(events.KindStateChanged, map[string]string{
		"from": from.String(),
		"to":   next.String(),
	})
}

// finish closes out a successful run. The pass/fail determination is local;
// the oracle only composes the message text.
func (d *Driver) finish(ctx context.Context, prog *progress.Progress) *Result {
	d.transition(StateDone)

	verdict := types.VerdictFail
	if prog.AllObjectivesCompleted() {
		verdict = types.VerdictPass
	}

	message := ""
	if msg, err := d.deps.Oracle.ComposeResponse(ctx, prog.RenderForOracle()); err == nil {
		message = msg
	}

	result := d.buildResult(prog, StateDone, verdict, "", message)
	d.deps.Emitter.Emit(events.KindRunDone, map[string]string{
		"verdict":   verdict.String(),
		"completed": strconv.Itoa(result.Completed),
		"total":     strconv.Itoa(result.Total),
	})
	return result
}

// fail closes out a failed run with the terminal reason and the last known
// snapshot. Budget exhaustion skips the diagnostic composition on purpose:
// there is nothing new for the oracle to say about an oscillation cutoff.
func (d *Driver) fail(prog *progress.Progress, cause error) *Result {
	d.transition(StateFailed)

	message := ""
	if prog != nil {
		// The step the run died on carries the terminal reason; a step that
		// already reached a terminal status keeps it
		if current, cerr := prog.CurrentStep(); cerr == nil && !current.Status.IsTerminal() {
			prog.MarkCurrentFailed(cause.Error())
		}
		if !errors.Is(cause, ErrIterationBudgetExceeded) && !errors.Is(cause, ErrCancellationRequested) {
			// The run context may already be dead; give the diagnostic its
			// own bounded one. Oracle failure here degrades to the local
			// reason.
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()
			if msg, err := d.deps.Oracle.ComposeResponse(ctx, prog.RenderForOracle()); err == nil {
				message = msg
			}
		}
	}

	result := d.buildResult(prog, StateFailed, types.VerdictFail, cause.Error(), message)
	d.deps.Emitter.Emit(events.KindRunFailed, map[string]string{
		"reason":    result.Reason,
		"completed": strconv.Itoa(result.Completed),
		"total":     strconv.Itoa(result.Total),
	})
	return result
}

func (d *Driver) buildResult(prog *progress.Progress, state State, verdict types.Verdict, reason, message string) *Result {
	result := &Result{
		RunID:      d.runID,
		State:      state,
		Verdict:    verdict,
		Reason:     reason,
		Message:    message,
		Iterations: d.iterations,
	}
	if prog != nil {
		result.Completed = prog.CompletedObjectiveCount()
		result.Total = prog.TotalObjectiveCount()
		result.Progress = prog.Snapshot()
	}
	return result
}
