package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recordsync/internal/record"
)

// Scenario is a scripted exchange between the sync manager and the local
// store: records arrive, pending references resolve, objects go away, and
// the assertions check what is left.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the directory holding the CUE model. Relative paths are
	// resolved against the scenario file's directory by LoadScenario.
	Model string `yaml:"model"`

	// ZoneName and OwnerName select the zone records live in. Both
	// default to the mapping defaults.
	ZoneName  string `yaml:"zone_name,omitempty"`
	OwnerName string `yaml:"owner_name,omitempty"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final store.
	Assertions []Assertion `yaml:"assertions"`
}

// Step does exactly one thing: apply a record, resolve parked
// references, or delete a local object.
type Step struct {
	Apply   *record.Document `yaml:"apply,omitempty"`
	Resolve bool             `yaml:"resolve,omitempty"`
	Delete  string           `yaml:"delete,omitempty"`

	// Expect validates the step's outcome. If nil, the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Kind names the step's action.
func (s Step) Kind() string {
	switch {
	case s.Apply != nil:
		return StepApply
	case s.Resolve:
		return StepResolve
	case s.Delete != "":
		return StepDelete
	}
	return ""
}

// Expect is a subset match on a step's outcome. Unset fields are not
// checked; an empty list checks for no entries.
type Expect struct {
	Created  *bool    `yaml:"created,omitempty"`
	Changed  *bool    `yaml:"changed,omitempty"`
	Linked   []string `yaml:"linked,omitempty"`
	Pending  []string `yaml:"pending,omitempty"`
	Resolved []string `yaml:"resolved,omitempty"`

	// Error is the mapping error code the step must fail with.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the store after all steps ran.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Entity       string `yaml:"entity,omitempty"`
	ID           string `yaml:"id,omitempty"`
	Relationship string `yaml:"relationship,omitempty"`

	// Destination is the local id a relationship must point at (linked).
	Destination string `yaml:"destination,omitempty"`

	// Fields is a subset of the projected record's fields (projection).
	// A null value asserts the field is absent.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Count is the expected number of objects or pending references.
	Count *int `yaml:"count,omitempty"`
}

// Step kinds.
const (
	StepApply   = "apply"
	StepResolve = "resolve"
	StepDelete  = "delete"
)

// Assertion types.
const (
	AssertObjectCount  = "object_count"
	AssertPendingCount = "pending_count"
	AssertLinked       = "linked"
	AssertProjection   = "projection"
	AssertAbsent       = "absent"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected and the model path is resolved against the
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Model != "" && !filepath.IsAbs(scenario.Model) {
		scenario.Model = filepath.Join(filepath.Dir(path), scenario.Model)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model == "" {
		return fmt.Errorf("model is required")
	}
	if info, err := os.Stat(s.Model); err != nil || !info.IsDir() {
		return fmt.Errorf("model directory not found: %s", s.Model)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		n := 0
		if step.Apply != nil {
			n++
		}
		if step.Resolve {
			n++
		}
		if step.Delete != "" {
			n++
		}
		if n != 1 {
			return fmt.Errorf("steps[%d]: exactly one of apply, resolve or delete is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertObjectCount:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: entity is required for object_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for object_count", index)
		}
	case AssertPendingCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for pending_count", index)
		}
	case AssertLinked:
		if a.Entity == "" || a.ID == "" || a.Relationship == "" || a.Destination == "" {
			return fmt.Errorf("assertions[%d]: entity, id, relationship and destination are required for linked", index)
		}
	case AssertProjection:
		if a.Entity == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: entity and id are required for projection", index)
		}
		if len(a.Fields) == 0 {
			return fmt.Errorf("assertions[%d]: fields are required for projection", index)
		}
	case AssertAbsent:
		if a.Entity == "" || a.ID == "" {
			return fmt.Errorf("assertions[%d]: entity and id are required for absent", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
