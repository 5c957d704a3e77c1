package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"gopkg.in/yaml.v3"
)

// Model holds the tunable model parameters. It can be read from a YAML file:
//
//	rainfall:
//	  current: 1.0
//	  future: 1.15
//	grouping: adjacency
type Model struct {
	Rainfall Rainfall `yaml:"rainfall"`
	Grouping string   `yaml:"grouping"`
}

// Rainfall holds the precipitation multipliers for each scenario.
type Rainfall struct {
	Current float64 `yaml:"current"`
	Future  float64 `yaml:"future"`
}

// DefaultModel returns the parameters used when no model file is given.
func DefaultModel() Model {
	return Model{
		Rainfall: Rainfall{Current: 1.0, Future: 1.15},
		Grouping: string(domain.GroupByAdjacency),
	}
}

// LoadModel reads a YAML model file. Keys missing from the file keep their
// defaults.
func LoadModel(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("read MODEL_FILE: %w", err)
	}
	m := DefaultModel()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Model{}, fmt.Errorf("parse MODEL_FILE %s: %w", path, err)
	}
	return m, nil
}

// Validate checks multipliers and grouping mode.
func (m Model) Validate() error {
	if m.Rainfall.Current <= 0 || m.Rainfall.Future <= 0 {
		return errors.New("rainfall multipliers must be > 0")
	}
	if _, err := domain.ParseGroupingMode(m.Grouping); err != nil {
		return fmt.Errorf("invalid GROUPING_MODE: %w", err)
	}
	return nil
}

// Scenarios returns the current and future rainfall scenarios.
func (m Model) Scenarios() (domain.Scenario, domain.Scenario) {
	return domain.Scenario{Name: "current", Multiplier: m.Rainfall.Current},
		domain.Scenario{Name: "future", Multiplier: m.Rainfall.Future}
}

// GroupingMode returns the validated grouping mode.
func (m Model) GroupingMode() domain.GroupingMode {
	mode, err := domain.ParseGroupingMode(m.Grouping)
	if err != nil {
		return domain.GroupByAdjacency
	}
	return mode
}
