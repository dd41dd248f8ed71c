// Package device executes single device actions and reports outcomes. The
// engine only sees the Executor contract; the Appium wiring underneath is a
// collaborator detail.
package device

import (
	"context"
	"fmt"

	"github.com/droidpilot/droidpilot/internal/oracle"
)

// Outcome reports one executed action. "Element not found"-class failures
// are ordinary outcomes with Success=false, never errors: the replan
// controller treats them as information to react to.
type Outcome struct {
	Success bool
	Tool    string // Device tool that ran (e.g. "tap", "send_keys")
	Detail  string // Diagnostic detail for the history record
}

// Executor performs one device action at a time
type Executor interface {
	// Execute performs a single action described in plan language.
	// It returns an error only for connectivity-class failures.
	Execute(ctx context.Context, action string) (Outcome, error)

	// Reconnect re-establishes the device session after a connectivity
	// failure
	Reconnect(ctx context.Context) error
}

// ScreenSource captures the device's current screen state for the oracle
type ScreenSource interface {
	CaptureScreen(ctx context.Context) (oracle.ScreenContext, error)
}

// ConnectivityError indicates the device session is lost. It triggers the
// driver's bounded reconnect policy.
type ConnectivityError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("device connectivity (%s): %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
