package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/magsim/internal/config"
	"github.com/san-kum/magsim/internal/dynamo"
	"github.com/san-kum/magsim/internal/experiment"
	"github.com/san-kum/magsim/internal/storage"
	"gopkg.in/yaml.v3"
)

// Script is a scripted sequence of simulations.
type Script struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step starts from a preset (or the defaults) and overlays Config on it.
// Preset is "scenario/name".
type Step struct {
	Preset string    `yaml:"preset"`
	SaveAs string    `yaml:"save_as"`
	Config yaml.Node `yaml:"config"`
}

// StepResult is the outcome of one step. RunID is empty when no store
// was given.
type StepResult struct {
	Name   string
	RunID  string
	Result *dynamo.Result
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScript(data)
}

func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, err
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script %q has no steps", script.Name)
	}
	return &script, nil
}

// Resolve builds the config of step i.
func (s *Script) Resolve(i int) (*config.Config, error) {
	step := s.Steps[i]

	cfg := config.DefaultConfig()
	if step.Preset != "" {
		scenario, name, ok := strings.Cut(step.Preset, "/")
		if !ok {
			return nil, fmt.Errorf("step %d: preset must be scenario/name, got %q", i+1, step.Preset)
		}
		if cfg = config.GetPreset(scenario, name); cfg == nil {
			return nil, fmt.Errorf("step %d: unknown preset %q", i+1, step.Preset)
		}
	}

	if !step.Config.IsZero() {
		if err := step.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if step.SaveAs != "" {
		cfg.Name = step.SaveAs
	}
	return cfg, nil
}

// Run executes every step in order, saving each result when st is not
// nil. It stops at the first failing step and returns what completed.
func Run(ctx context.Context, script *Script, reg *experiment.Registry, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(script.Steps))

	for i := range script.Steps {
		cfg, err := script.Resolve(i)
		if err != nil {
			return results, err
		}

		slog.Info("running step", "step", i+1, "of", len(script.Steps), "name", cfg.Name)

		exp, err := experiment.Build(cfg, reg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: cfg.Name, Result: result}
		if st != nil {
			sr.RunID, err = st.Save(experiment.RunInfo(cfg), result)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}
