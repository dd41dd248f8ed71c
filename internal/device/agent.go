package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/droidpilot/droidpilot/internal/oracle"
)

// settleDelay gives the UI time to reflect an action before the next screen
// capture. Empirical value carried over from manual tuning.
const settleDelay = 3 * time.Second

// Agent executes plan actions by asking the action interpreter which single
// tool to run, then dispatching it to the Appium session. Element misses and
// failed verifications come back as ordinary unsuccessful outcomes.
type Agent struct {
	session *Session
	interp  oracle.ActionInterpreter
}

// NewAgent creates an executor over the session and interpreter
func NewAgent(session *Session, interp oracle.ActionInterpreter) *Agent {
	return &Agent{session: session, interp: interp}
}

// Execute implements Executor
func (a *Agent) Execute(ctx context.Context, action string) (Outcome, error) {
	screen, err := a.session.CaptureScreen(ctx)
	if err != nil {
		return Outcome{}, err
	}

	call, err := a.interp.InterpretAction(ctx, action, screen)
	if err != nil {
		// Interpreter failure is not a device failure; report it as an
		// unsuccessful outcome for the controller to replan around
		return Outcome{Success: false, Tool: "interpret", Detail: err.Error()}, nil
	}

	outcome, err := a.dispatch(ctx, call, screen)
	if err != nil {
		// Only connectivity loss propagates; element misses and other
		// device-side failures are information for the controller
		var conn *ConnectivityError
		if errors.As(err, &conn) {
			return Outcome{}, err
		}
		return Outcome{Success: false, Tool: call.Tool, Detail: err.Error()}, nil
	}

	if outcome.Success && call.Tool != "verify" {
		// Allow the screen to settle before the next capture
		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
		}
	}
	return outcome, nil
}

// Reconnect implements Executor
func (a *Agent) Reconnect(ctx context.Context) error {
	return a.session.Reconnect(ctx)
}

func (a *Agent) dispatch(ctx context.Context, call *oracle.ToolCall, screen oracle.ScreenContext) (Outcome, error) {
	switch call.Tool {
	case "tap":
		elem, err := a.session.FindElement(ctx, call.Using, call.Locator)
		if err != nil {
			return Outcome{}, err
		}
		if err := a.session.Tap(ctx, elem); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "tap", Detail: fmt.Sprintf("tapped %s=%s", call.Using, call.Locator)}, nil

	case "send_keys":
		elem, err := a.session.FindElement(ctx, call.Using, call.Locator)
		if err != nil {
			return Outcome{}, err
		}
		if err := a.session.SendKeys(ctx, elem, call.Text); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "send_keys", Detail: fmt.Sprintf("typed %q into %s=%s", call.Text, call.Using, call.Locator)}, nil

	case "press_keycode":
		if err := a.session.PressKeyCode(ctx, call.KeyCode); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "press_keycode", Detail: fmt.Sprintf("pressed keycode %d", call.KeyCode)}, nil

	case "activate_app":
		if err := a.session.ActivateApp(ctx, call.AppID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "activate_app", Detail: "activated " + call.AppID}, nil

	case "terminate_app":
		if err := a.session.TerminateApp(ctx, call.AppID); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "terminate_app", Detail: "terminated " + call.AppID}, nil

	case "swipe":
		if err := a.session.Swipe(ctx, call.Direction); err != nil {
			return Outcome{}, err
		}
		return Outcome{Success: true, Tool: "swipe", Detail: "swiped " + call.Direction}, nil

	case "verify":
		// Cheap structural check against the page source; the oracle's
		// assessment makes the authoritative judgement at the next tick
		found := strings.Contains(screen.Locators, call.Target)
		detail := fmt.Sprintf("%q visible in page source: %t", call.Target, found)
		return Outcome{Success: found, Tool: "verify", Detail: detail}, nil

	default:
		return Outcome{Success: false, Tool: call.Tool, Detail: "unknown tool " + call.Tool}, nil
	}
}
