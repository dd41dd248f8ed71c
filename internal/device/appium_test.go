package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/droidpilot/droidpilot/internal/oracle"
)

// fakeAppium is a minimal WebDriver endpoint for session tests
type fakeAppium struct {
	sessions      int
	screenshotErr bool
	staleSession  bool
}

func (f *fakeAppium) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /session", func(w http.ResponseWriter, r *http.Request) {
		f.sessions++
		writeValue(w, map[string]string{"sessionId": fmt.Sprintf("sess-%d", f.sessions)})
	})
	mux.HandleFunc("DELETE /session/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, nil)
	})
	mux.HandleFunc("POST /session/{id}/element", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Using string `json:"using"`
			Value string `json:"value"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.staleSession {
			writeWireError(w, http.StatusNotFound, "invalid session id", "session is gone")
			return
		}
		if strings.Contains(body.Value, "missing") {
			writeWireError(w, http.StatusNotFound, "no such element", "nothing matched "+body.Value)
			return
		}
		writeValue(w, map[string]string{"element-6066-11e4-a52e-4f735466cecf": "elem-1"})
	})
	mux.HandleFunc("POST /session/{id}/element/{elem}/click", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, nil)
	})
	mux.HandleFunc("POST /session/{id}/element/{elem}/value", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, nil)
	})
	mux.HandleFunc("GET /session/{id}/source", func(w http.ResponseWriter, r *http.Request) {
		writeValue(w, `<hierarchy><node text="Welcome"/></hierarchy>`)
	})
	mux.HandleFunc("GET /session/{id}/screenshot", func(w http.ResponseWriter, r *http.Request) {
		if f.screenshotErr {
			writeWireError(w, http.StatusInternalServerError, "unknown error", "screenshot failed")
			return
		}
		writeValue(w, "aGVsbG8=")
	})
	return mux
}

func writeValue(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

func writeWireError(w http.ResponseWriter, status int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"value": map[string]string{"error": errCode, "message": message},
	})
}

func newTestSession(t *testing.T, f *fakeAppium) *Session {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	s, err := NewSession(context.Background(), server.URL, map[string]interface{}{
		"platformName": "Android",
	})
	if err != nil {
		t.Fatalf("NewSession() unexpected error = %v", err)
	}
	return s
}

func TestSessionLifecycle(t *testing.T) {
	f := &fakeAppium{}
	s := newTestSession(t, f)

	if s.sessionID != "sess-1" {
		t.Errorf("sessionID = %q, want sess-1", s.sessionID)
	}

	// Reconnect abandons the old id and negotiates a new one
	if err := s.Reconnect(context.Background()); err != nil {
		t.Fatalf("Reconnect() unexpected error = %v", err)
	}
	if s.sessionID != "sess-2" {
		t.Errorf("sessionID after Reconnect = %q, want sess-2", s.sessionID)
	}

	if err := s.Close(context.Background()); err != nil {
		t.Errorf("Close() unexpected error = %v", err)
	}
	if s.sessionID != "" {
		t.Errorf("sessionID after Close = %q, want empty", s.sessionID)
	}
}

func TestSessionUnreachableServer(t *testing.T) {
	_, err := NewSession(context.Background(), "http://127.0.0.1:1", nil)
	var conn *ConnectivityError
	if !errors.As(err, &conn) {
		t.Errorf("NewSession() against a closed port error = %v, want *ConnectivityError", err)
	}
}

func TestFindElement(t *testing.T) {
	f := &fakeAppium{}
	s := newTestSession(t, f)

	elem, err := s.FindElement(context.Background(), "id", "com.example:id/login")
	if err != nil {
		t.Fatalf("FindElement() unexpected error = %v", err)
	}
	if elem != "elem-1" {
		t.Errorf("FindElement() = %q, want elem-1", elem)
	}

	_, err = s.FindElement(context.Background(), "id", "com.example:id/missing")
	if !errors.Is(err, ErrNoSuchElement) {
		t.Errorf("FindElement() miss error = %v, want ErrNoSuchElement", err)
	}
}

func TestExpiredSessionIsConnectivity(t *testing.T) {
	f := &fakeAppium{}
	s := newTestSession(t, f)
	f.staleSession = true

	_, err := s.FindElement(context.Background(), "id", "com.example:id/login")
	var conn *ConnectivityError
	if !errors.As(err, &conn) {
		t.Errorf("FindElement() on an expired session error = %v, want *ConnectivityError", err)
	}
}

func TestCaptureScreen(t *testing.T) {
	f := &fakeAppium{}
	s := newTestSession(t, f)

	screen, err := s.CaptureScreen(context.Background())
	if err != nil {
		t.Fatalf("CaptureScreen() unexpected error = %v", err)
	}
	if !strings.Contains(screen.Locators, "Welcome") {
		t.Errorf("CaptureScreen() Locators = %q, want the page source", screen.Locators)
	}
	if !strings.HasPrefix(screen.Screenshot, "data:image/png;base64,") {
		t.Errorf("CaptureScreen() Screenshot = %q, want a data URL", screen.Screenshot)
	}
}

func TestCaptureScreenDegradesWithoutScreenshot(t *testing.T) {
	f := &fakeAppium{screenshotErr: true}
	s := newTestSession(t, f)

	screen, err := s.CaptureScreen(context.Background())
	if err != nil {
		t.Fatalf("CaptureScreen() unexpected error = %v", err)
	}
	if screen.Locators == "" {
		t.Error("CaptureScreen() lost the page source when the screenshot failed")
	}
	if screen.Screenshot != "" {
		t.Errorf("CaptureScreen() Screenshot = %q, want empty on failure", screen.Screenshot)
	}
}

// fakeInterpreter returns a fixed tool call
type fakeInterpreter struct {
	call *oracle.ToolCall
	err  error
}

func (f *fakeInterpreter) InterpretAction(ctx context.Context, action string, screen oracle.ScreenContext) (*oracle.ToolCall, error) {
	return f.call, f.err
}

func TestAgentExecute(t *testing.T) {
	tests := []struct {
		name        string
		call        *oracle.ToolCall
		interpErr   error
		wantSuccess bool
		wantTool    string
	}{
		{
			name:        "verify target on screen",
			call:        &oracle.ToolCall{Tool: "verify", Target: "Welcome"},
			wantSuccess: true,
			wantTool:    "verify",
		},
		{
			name:        "verify target absent",
			call:        &oracle.ToolCall{Tool: "verify", Target: "Goodbye"},
			wantSuccess: false,
			wantTool:    "verify",
		},
		{
			name:        "element miss is an unsuccessful outcome",
			call:        &oracle.ToolCall{Tool: "tap", Using: "id", Locator: "com.example:id/missing"},
			wantSuccess: false,
			wantTool:    "tap",
		},
		{
			name:        "interpreter failure is an unsuccessful outcome",
			interpErr:   errors.New("model unavailable"),
			wantSuccess: false,
			wantTool:    "interpret",
		},
		{
			name:        "unknown tool rejected",
			call:        &oracle.ToolCall{Tool: "shake"},
			wantSuccess: false,
			wantTool:    "shake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeAppium{}
			s := newTestSession(t, f)
			agent := NewAgent(s, &fakeInterpreter{call: tt.call, err: tt.interpErr})

			outcome, err := agent.Execute(context.Background(), "do the thing")
			if err != nil {
				t.Fatalf("Execute() unexpected error = %v", err)
			}
			if outcome.Success != tt.wantSuccess {
				t.Errorf("Execute() Success = %v, want %v (detail: %s)", outcome.Success, tt.wantSuccess, outcome.Detail)
			}
			if outcome.Tool != tt.wantTool {
				t.Errorf("Execute() Tool = %q, want %q", outcome.Tool, tt.wantTool)
			}
		})
	}
}

func TestAgentExecutePropagatesConnectivity(t *testing.T) {
	f := &fakeAppium{}
	s := newTestSession(t, f)
	agent := NewAgent(s, &fakeInterpreter{call: &oracle.ToolCall{Tool: "tap", Using: "id", Locator: "x"}})
	f.staleSession = true

	_, err := agent.Execute(context.Background(), "tap the button")
	var conn *ConnectivityError
	if !errors.As(err, &conn) {
		t.Errorf("Execute() on an expired session error = %v, want *ConnectivityError", err)
	}
}
