// Package oracle defines the reasoning-oracle contract: the external
// decision-making service consulted for state assessment, plan generation,
// goal parsing, and response composition. Everything behind the interface
// (prompting, model choice) is the implementation's concern.
package oracle

import "context"

// ScreenContext carries the device's current screen state to the oracle.
// The engine treats it as opaque.
type ScreenContext struct {
	Locators   string // UI element locator dump (resource-ids, bounds, text)
	Screenshot string // Optional data URL of the current screenshot
}

// Blocking describes a UI condition obstructing the current objective
type Blocking struct {
	Reason      string // What is blocking (e.g. "terms-of-service dialog")
	DismissHint string // How to clear it, if the oracle knows (e.g. a resource-id)
}

// Assessment is the oracle's judgement of the current device state against
// the current objective. The field set is closed; the controller's
// classification switches over exactly these fields.
type Assessment struct {
	// Blocking is non-nil when a blocking UI condition was detected
	Blocking *Blocking
	// BlockExpected is set when the blocking condition is itself one of the
	// declared objective's own sub-goals. The engine never re-derives this;
	// the oracle says so or it isn't so.
	BlockExpected bool

	// ObjectiveAchieved reports whether the current objective's completion
	// evidence is present on screen
	ObjectiveAchieved bool
	// Evidence backs the achieved/not-achieved judgement
	Evidence string

	// DefectDetected reports an app defect (crash, freeze, stuck state)
	DefectDetected bool
	DefectReason   string
	// Stuck means repeated actions are producing no screen change
	Stuck bool

	// Suggestion is a free-text hint for the next plan
	Suggestion string
}

// Oracle is the reasoning service consulted by the engine. All calls are
// blocking request/response; failures surface as *Error.
type Oracle interface {
	// AssessState judges the device state against the progress snapshot
	AssessState(ctx context.Context, progressSnapshot string, screen ScreenContext) (*Assessment, error)

	// GeneratePlan produces an ordered action list for one step description
	GeneratePlan(ctx context.Context, stepDescription string, screen ScreenContext) ([]string, error)

	// ComposeResponse writes the human-readable final message for a run.
	// Message text only; the pass/fail determination is the engine's.
	ComposeResponse(ctx context.Context, progressSnapshot string) (string, error)
}

// GoalParser turns the user's raw natural-language goal text into an ordered
// list of goal descriptions. Consumed once at run start.
type GoalParser interface {
	ParseGoals(ctx context.Context, raw string) ([]string, error)
}
