package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/droidpilot/droidpilot/internal/oracle"
)

// ErrNoSuchElement marks locator misses so callers can fold them into an
// ordinary failed Outcome
var ErrNoSuchElement = fmt.Errorf("no such element")

// Session is a W3C WebDriver session against an Appium server. One session
// per run; Reconnect tears down and recreates it with the same capabilities.
type Session struct {
	baseURL      string
	capabilities map[string]interface{}
	client       *http.Client
	sessionID    string
}

// NewSession connects to the Appium server and starts a session
func NewSession(ctx context.Context, serverURL string, capabilities map[string]interface{}) (*Session, error) {
	s := &Session{
		baseURL:      strings.TrimRight(serverURL, "/"),
		capabilities: capabilities,
		client:       &http.Client{Timeout: 120 * time.Second},
	}
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": s.capabilities,
		},
	}
	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := s.do(ctx, http.MethodPost, "/session", body, &resp); err != nil {
		return err
	}
	if resp.Value.SessionID == "" {
		return &ConnectivityError{Op: "new_session", Err: fmt.Errorf("server returned no session id")}
	}
	s.sessionID = resp.Value.SessionID
	return nil
}

// Reconnect implements the Executor reconnect hook: it abandons the old
// session id and negotiates a fresh one
func (s *Session) Reconnect(ctx context.Context) error {
	if s.sessionID != "" {
		// Best effort; the old session may already be gone
		_ = s.do(ctx, http.MethodDelete, "/session/"+s.sessionID, nil, nil)
		s.sessionID = ""
	}
	return s.start(ctx)
}

// Close deletes the session
func (s *Session) Close(ctx context.Context) error {
	if s.sessionID == "" {
		return nil
	}
	err := s.do(ctx, http.MethodDelete, "/session/"+s.sessionID, nil, nil)
	s.sessionID = ""
	return err
}

// FindElement resolves a locator to an element id.
// using is "id", "xpath", or "-android uiautomator".
func (s *Session) FindElement(ctx context.Context, using, value string) (string, error) {
	var resp struct {
		Value map[string]string `json:"value"`
	}
	err := s.do(ctx, http.MethodPost, s.path("/element"), map[string]string{
		"using": using,
		"value": value,
	}, &resp)
	if err != nil {
		return "", err
	}
	for _, id := range resp.Value {
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s=%q", ErrNoSuchElement, using, value)
}

// Tap clicks the element
func (s *Session) Tap(ctx context.Context, elementID string) error {
	return s.do(ctx, http.MethodPost, s.path("/element/"+elementID+"/click"), map[string]string{}, nil)
}

// SendKeys types text into the element in one shot
func (s *Session) SendKeys(ctx context.Context, elementID, text string) error {
	return s.do(ctx, http.MethodPost, s.path("/element/"+elementID+"/value"), map[string]string{
		"text": text,
	}, nil)
}

// PressKeyCode sends an Android keycode (66 Enter, 4 Back)
func (s *Session) PressKeyCode(ctx context.Context, keycode int) error {
	return s.do(ctx, http.MethodPost, s.path("/appium/device/press_keycode"), map[string]int{
		"keycode": keycode,
	}, nil)
}

// ActivateApp brings the app to the foreground, launching it if needed
func (s *Session) ActivateApp(ctx context.Context, appID string) error {
	return s.do(ctx, http.MethodPost, s.path("/appium/device/activate_app"), map[string]string{
		"appId": appID,
	}, nil)
}

// TerminateApp stops the app
func (s *Session) TerminateApp(ctx context.Context, appID string) error {
	return s.do(ctx, http.MethodPost, s.path("/appium/device/terminate_app"), map[string]string{
		"appId": appID,
	}, nil)
}

// Swipe scrolls by a fixed gesture through the mobile: command endpoint
func (s *Session) Swipe(ctx context.Context, direction string) error {
	return s.do(ctx, http.MethodPost, s.path("/execute/sync"), map[string]interface{}{
		"script": "mobile: swipeGesture",
		"args": []interface{}{map[string]interface{}{
			"direction": direction,
			"left":      100, "top": 400, "width": 600, "height": 800,
			"percent": 0.75,
		}},
	}, nil)
}

// PageSource returns the current UI hierarchy XML
func (s *Session) PageSource(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, s.path("/source"), nil, &resp); err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Screenshot returns the current screen as a PNG data URL
func (s *Session) Screenshot(ctx context.Context) (string, error) {
	var resp struct {
		Value string `json:"value"`
	}
	if err := s.do(ctx, http.MethodGet, s.path("/screenshot"), nil, &resp); err != nil {
		return "", err
	}
	if resp.Value == "" {
		return "", nil
	}
	return "data:image/png;base64," + resp.Value, nil
}

// CaptureScreen implements ScreenSource
func (s *Session) CaptureScreen(ctx context.Context) (oracle.ScreenContext, error) {
	source, err := s.PageSource(ctx)
	if err != nil {
		return oracle.ScreenContext{}, err
	}
	// Screenshot failures degrade to locators-only context
	shot, err := s.Screenshot(ctx)
	if err != nil {
		shot = ""
	}
	return oracle.ScreenContext{Locators: source, Screenshot: shot}, nil
}

func (s *Session) path(suffix string) string {
	return "/session/" + s.sessionID + suffix
}

// wireError is the WebDriver error envelope
type wireError struct {
	Value struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	} `json:"value"`
}

func (s *Session) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return connectivityOf(path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return connectivityOf(path, err)
	}

	if resp.StatusCode >= 400 {
		var we wireError
		if json.Unmarshal(payload, &we) == nil && we.Value.Error != "" {
			if we.Value.Error == "no such element" {
				return fmt.Errorf("%w: %s", ErrNoSuchElement, we.Value.Message)
			}
			if we.Value.Error == "invalid session id" {
				return &ConnectivityError{Op: path, Err: fmt.Errorf("session expired: %s", we.Value.Message)}
			}
			return fmt.Errorf("%s: %s: %s", path, we.Value.Error, we.Value.Message)
		}
		return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

// connectivityOf classifies transport failures as connectivity errors so the
// driver's reconnect policy can engage. http.Client wraps dial and timeout
// failures in *url.Error; any failure to reach the server counts as
// connectivity loss.
func connectivityOf(op string, err error) error {
	return &ConnectivityError{Op: op, Err: err}
}
