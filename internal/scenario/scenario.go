// Package scenario loads test scenario files.
//
// A scenario names the app under test and states what the run should
// accomplish, either as an ordered list of goals or as free-form
// instructions that the oracle decomposes into goals at run time.
package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario describes a single test run
type Scenario struct {
	Name         string   `yaml:"name"`
	App          string   `yaml:"app"`
	Goals        []string `yaml:"goals,omitempty"`
	Instructions string   `yaml:"instructions,omitempty"`
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return &sc, nil
}

// Validate checks that the scenario is runnable
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("scenario.name: must not be empty")
	}
	if strings.TrimSpace(s.App) == "" {
		return fmt.Errorf("scenario.app: must not be empty")
	}
	if len(s.Goals) == 0 && strings.TrimSpace(s.Instructions) == "" {
		return fmt.Errorf("scenario: must set goals or instructions")
	}
	for i, g := range s.Goals {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("scenario.goals[%d]: must not be empty", i)
		}
	}
	return nil
}

// GoalText returns the raw goal text a run starts from. For
// scenarios with an explicit goal list this is a numbered rendering
// of that list; otherwise it is the free-form instructions.
func (s *Scenario) GoalText() string {
	if len(s.Goals) == 0 {
		return s.Instructions
	}
	var b strings.Builder
	for i, g := range s.Goals {
		fmt.Fprintf(&b, "%d. %s\n", i+1, g)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ListParser satisfies goal parsing for scenarios that carry an
// explicit goal list, bypassing the oracle entirely.
type ListParser struct {
	Goals []string
}

func (p *ListParser) ParseGoals(ctx context.Context, raw string) ([]string, error) {
	if len(p.Goals) == 0 {
		return nil, fmt.Errorf("scenario has no goals")
	}
	goals := make([]string, len(p.Goals))
	copy(goals, p.Goals)
	return goals, nil
}
