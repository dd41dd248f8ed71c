package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the production oracle backed by an OpenAI-compatible chat API.
// Every call requests a strict JSON object and unmarshals it into the closed
// result types, so an unparseable reply is an error, never a partial result.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an oracle client. baseURL may be empty for the default
// OpenAI endpoint; set it for self-hosted compatible servers.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// assessmentPayload is the wire shape of the assessment JSON
type assessmentPayload struct {
	BlockingReason    string `json:"blocking_reason"`
	BlockingDismiss   string `json:"blocking_dismiss_hint"`
	BlockExpected     bool   `json:"block_is_objective_target"`
	ObjectiveAchieved bool   `json:"current_objective_achieved"`
	Evidence          string `json:"current_objective_evidence"`
	DefectDetected    bool   `json:"app_defect_detected"`
	DefectReason      string `json:"app_defect_reason"`
	Stuck             bool   `json:"is_stuck"`
	Suggestion        string `json:"suggested_next_action"`
}

const assessSystemPrompt = `You are an expert at analyzing mobile app screen state during automated testing.
Judge the CURRENT objective step against the screen, using the locator dump and screenshot together.

Rules:
- Judge by the user's objective steps, not by how much of any execution plan ran.
- Onboarding, consent, permission, login-prompt and similar dialogs are NOT app defects; report them as blocking.
- If the current objective step itself targets the dialog (e.g. "confirm the terms dialog"), the dialog is not blocking: set block_is_objective_target true.
- Report an app defect only for crashes, freezes, blank screens, or a target that stays missing with nothing blocking.
- When blocked, put the dismiss control's resource-id in blocking_dismiss_hint if visible.

Reply with exactly this JSON object:
{"blocking_reason": string ("" if nothing blocks),
 "blocking_dismiss_hint": string,
 "block_is_objective_target": bool,
 "current_objective_achieved": bool,
 "current_objective_evidence": string,
 "app_defect_detected": bool,
 "app_defect_reason": string,
 "is_stuck": bool,
 "suggested_next_action": string}`

// AssessState implements Oracle
func (c *Client) AssessState(ctx context.Context, progressSnapshot string, screen ScreenContext) (*Assessment, error) {
	user := fmt.Sprintf("Progress state:\n%s\n\nCurrent screen locators:\n%s", progressSnapshot, screen.Locators)

	raw, err := c.completeJSON(ctx, assessSystemPrompt, user, screen.Screenshot)
	if err != nil {
		return nil, wrap("assess_state", err)
	}

	var payload assessmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, wrap("assess_state", fmt.Errorf("unparseable assessment: %w", err))
	}

	a := &Assessment{
		BlockExpected:     payload.BlockExpected,
		ObjectiveAchieved: payload.ObjectiveAchieved,
		Evidence:          payload.Evidence,
		DefectDetected:    payload.DefectDetected,
		DefectReason:      payload.DefectReason,
		Stuck:             payload.Stuck,
		Suggestion:        payload.Suggestion,
	}
	if strings.TrimSpace(payload.BlockingReason) != "" {
		a.Blocking = &Blocking{
			Reason:      payload.BlockingReason,
			DismissHint: payload.BlockingDismiss,
		}
	}
	return a, nil
}

const planSystemPrompt = `You are an expert at planning mobile device actions for automated testing.
Produce the minimal ordered action list that achieves the given step on the current screen.

Rules:
- One action = one device tool call. Never bundle tap + type + confirm into one action.
- Use send_keys for text entry, never per-character keycodes; keycodes are for Enter/Back only.
- Reference concrete locators (resource-id, xpath) from the provided dump.
- No account creation, no logins, nothing unrelated to the step.

Reply with exactly this JSON object:
{"steps": [string, ...]}`

// GeneratePlan implements Oracle
func (c *Client) GeneratePlan(ctx context.Context, stepDescription string, screen ScreenContext) ([]string, error) {
	user := fmt.Sprintf("Step to achieve:\n%s\n\nCurrent screen locators:\n%s", stepDescription, screen.Locators)

	raw, err := c.completeJSON(ctx, planSystemPrompt, user, screen.Screenshot)
	if err != nil {
		return nil, wrap("generate_plan", err)
	}

	var payload struct {
		Steps []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, wrap("generate_plan", fmt.Errorf("unparseable plan: %w", err))
	}
	return payload.Steps, nil
}

const composeSystemPrompt = `You write the final summary for an automated mobile test run.
Given the progress state, report per-objective outcomes with their evidence, and any failure reasons.
Do not decide pass or fail; that decision is made elsewhere. Reply with this JSON object:
{"message": string}`

// ComposeResponse implements Oracle
func (c *Client) ComposeResponse(ctx context.Context, progressSnapshot string) (string, error) {
	raw, err := c.completeJSON(ctx, composeSystemPrompt, "Progress state:\n"+progressSnapshot, "")
	if err != nil {
		return "", wrap("compose_response", err)
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", wrap("compose_response", fmt.Errorf("unparseable response: %w", err))
	}
	return payload.Message, nil
}

const parseGoalsSystemPrompt = `You split a tester's natural-language instructions into an ordered list of individual test goals.
Each goal is one verifiable condition or user-level action. Preserve the tester's order. Do not invent goals.
Reply with this JSON object: {"goals": [string, ...]}`

// ParseGoals implements GoalParser
func (c *Client) ParseGoals(ctx context.Context, raw string) ([]string, error) {
	reply, err := c.completeJSON(ctx, parseGoalsSystemPrompt, raw, "")
	if err != nil {
		return nil, wrap("parse_goals", err)
	}

	var payload struct {
		Goals []string `json:"goals"`
	}
	if err := json.Unmarshal([]byte(reply), &payload); err != nil {
		return nil, wrap("parse_goals", fmt.Errorf("unparseable goal list: %w", err))
	}
	if len(payload.Goals) == 0 {
		return nil, wrap("parse_goals", fmt.Errorf("no goals extracted from input"))
	}
	return payload.Goals, nil
}

// completeJSON runs one chat completion in strict JSON mode, attaching the
// screenshot as an image part when present
func (c *Client) completeJSON(ctx context.Context, system, user, screenshot string) (string, error) {
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if screenshot != "" {
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: user},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: screenshot},
			},
		}
	} else {
		userMsg.Content = user
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			userMsg,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}
