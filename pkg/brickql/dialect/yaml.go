package dialect

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// profileSpec is the flat YAML shape LoadProfileYAML decodes before
// driving it through the same fluent Builder every programmatic caller
// uses, so a YAML-authored profile can never skip Build()'s validation.
type profileSpec struct {
	Tables       []string `yaml:"tables"`
	Target       Target   `yaml:"target"`
	MaxLimit     int      `yaml:"max_limit"`
	MaxJoinDepth int      `yaml:"max_join_depth"`
	Joins        bool     `yaml:"joins"`
	Aggregations bool     `yaml:"aggregations"`
	Subqueries   bool     `yaml:"subqueries"`
	CTEs         bool     `yaml:"ctes"`
	SetOps       bool     `yaml:"set_operations"`
	Windows      bool     `yaml:"window_functions"`
}

// LoadProfileYAML builds a Profile from a flat YAML fixture, for tests and
// demo code that would otherwise hand-write a chain of ProfileBuilder
// calls. It is a convenience constructor only: every feature flag still
// goes through Builder/Build, so the same profile.window_requires_aggregations
// and profile.ctes_require_subqueries checks apply.
func LoadProfileYAML(data []byte) (*Profile, error) {
	var spec profileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("dialect: invalid profile YAML: %w", err)
	}

	b := Builder(spec.Tables, spec.Target, spec.MaxLimit)
	if spec.Joins {
		b = b.Joins(spec.MaxJoinDepth)
	}
	if spec.Aggregations {
		b = b.Aggregations()
	}
	if spec.Subqueries {
		b = b.Subqueries()
	}
	if spec.CTEs {
		b = b.CTEs()
	}
	if spec.SetOps {
		b = b.SetOperations()
	}
	if spec.Windows {
		b = b.WindowFunctions()
	}
	return b.Build()
}
