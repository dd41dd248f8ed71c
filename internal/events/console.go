package events

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Theme holds the color functions for console event rendering
type Theme struct {
	Timestamp func(a ...interface{}) string
	Kind      func(a ...interface{}) string
	Success   func(a ...interface{}) string
	Error     func(a ...interface{}) string
	Warning   func(a ...interface{}) string
	Dim       func(a ...interface{}) string
}

// DefaultTheme creates the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		Timestamp: color.New(color.FgHiBlack).SprintFunc(),
		Kind:      color.New(color.FgCyan, color.Bold).SprintFunc(),
		Success:   color.New(color.FgGreen).SprintFunc(),
		Error:     color.New(color.FgRed).SprintFunc(),
		Warning:   color.New(color.FgYellow).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
	}
}

// NoColorTheme creates a theme with no color codes
func NoColorTheme() *Theme {
	plain := fmt.Sprint
	return &Theme{
		Timestamp: plain,
		Kind:      plain,
		Success:   plain,
		Error:     plain,
		Warning:   plain,
		Dim:       plain,
	}
}

// ConsoleSink renders events as single lines on stdout
type ConsoleSink struct {
	theme     *Theme
	termWidth int
}

// NewConsoleSink creates a console sink
func NewConsoleSink(noColor bool) *ConsoleSink {
	theme := DefaultTheme()
	if noColor {
		theme = NoColorTheme()
	}
	return &ConsoleSink{
		theme:     theme,
		termWidth: terminalWidth(),
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap for readability
	}
	return width
}

// Consume implements Sink
func (c *ConsoleSink) Consume(ev Event) {
	kindText := c.theme.Kind(string(ev.Kind))
	switch ev.Kind {
	case KindRunDone, KindObjectiveAchieved:
		kindText = c.theme.Success(string(ev.Kind))
	case KindRunFailed:
		kindText = c.theme.Error(string(ev.Kind))
	case KindRecoveryInserted:
		kindText = c.theme.Warning(string(ev.Kind))
	}

	line := fmt.Sprintf("[%s] %s %s",
		c.theme.Timestamp(ev.Timestamp.Format("15:04:05")),
		kindText,
		c.theme.Dim(formatPayload(ev.Payload)))
	if len(line) > c.termWidth*2 {
		line = line[:c.termWidth*2]
	}
	fmt.Println(strings.TrimRight(line, " "))
}

func formatPayload(payload map[string]string) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, payload[k]))
	}
	return strings.Join(parts, " ")
}
