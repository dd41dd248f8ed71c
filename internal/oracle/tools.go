package oracle

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolCall is one concrete device operation resolved from a plan action.
// The tool vocabulary is closed; the device layer switches over it.
type ToolCall struct {
	Tool      string `json:"tool"`       // tap | send_keys | press_keycode | activate_app | terminate_app | swipe | verify
	Using     string `json:"using"`      // Locator strategy: id | xpath | -android uiautomator
	Locator   string `json:"locator"`    // Locator value when the tool targets an element
	Text      string `json:"text"`       // send_keys payload
	KeyCode   int    `json:"keycode"`    // press_keycode payload
	AppID     string `json:"app_id"`     // activate_app / terminate_app payload
	Direction string `json:"direction"`  // swipe payload: up | down | left | right
	Target    string `json:"target"`     // verify: what should be visible
}

// ActionInterpreter resolves one natural-language plan action into a single
// tool call against the current screen
type ActionInterpreter interface {
	InterpretAction(ctx context.Context, action string, screen ScreenContext) (*ToolCall, error)
}

const interpretSystemPrompt = `You translate one test action into exactly one device tool call.
Available tools:
- tap: {"tool":"tap","using":"id|xpath","locator":...}
- send_keys: {"tool":"send_keys","using":...,"locator":...,"text":...} (whole string at once)
- press_keycode: {"tool":"press_keycode","keycode":66} (special keys only: 66 Enter, 4 Back)
- activate_app / terminate_app: {"tool":"activate_app","app_id":...}
- swipe: {"tool":"swipe","direction":"up|down|left|right"}
- verify: {"tool":"verify","target":"what must be visible"} (checks the screen, changes nothing)

Pick the locator from the provided dump; prefer resource-id over xpath. Reply with exactly one JSON tool call object.`

// InterpretAction implements ActionInterpreter
func (c *Client) InterpretAction(ctx context.Context, action string, screen ScreenContext) (*ToolCall, error) {
	user := fmt.Sprintf("Action to perform:\n%s\n\nCurrent screen locators:\n%s", action, screen.Locators)

	raw, err := c.completeJSON(ctx, interpretSystemPrompt, user, screen.Screenshot)
	if err != nil {
		return nil, wrap("interpret_action", err)
	}

	var call ToolCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		return nil, wrap("interpret_action", fmt.Errorf("unparseable tool call: %w", err))
	}
	if call.Tool == "" {
		return nil, wrap("interpret_action", fmt.Errorf("no tool selected for action %q", action))
	}
	return &call, nil
}
