package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chronotree/internal/chrono"
)

// Scenario defines a replica conformance scenario: a set of named replicas,
// a script of add/merge/snapshot steps, and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Replicas lists the replica names, in creation order.
	Replicas []string `yaml:"replicas"`

	// Root, when set, is the payload of a shared root record labeled "root".
	// Every replica starts from it. Without Root, replicas start empty.
	Root any `yaml:"root,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final replica state.
	Assertions []Assertion `yaml:"assertions"`
}

// RootLabel is the label bound to the shared root record.
const RootLabel = "root"

// Step applies exactly one of Add, Merge or Snapshot to Replica.
type Step struct {
	// Replica is the replica the step acts on.
	Replica string `yaml:"replica"`

	// Add appends a content record.
	Add *AddStep `yaml:"add,omitempty"`

	// Merge names what to merge: a replica (its current head), a snapshot
	// label, or a record label.
	Merge string `yaml:"merge,omitempty"`

	// Snapshot stores the replica's current head under a label.
	Snapshot string `yaml:"snapshot,omitempty"`

	// Expect is the error code the step must fail with. Empty means the step
	// must succeed.
	Expect chrono.ErrorCode `yaml:"expect,omitempty"`
}

// AddStep describes a content record to append.
type AddStep struct {
	// Label names the new record for later steps and assertions.
	Label string `yaml:"label"`

	// Parent is a reference to the parent record. Empty adds a root.
	Parent string `yaml:"parent,omitempty"`

	// Payload is the record payload. Defaults to the label.
	Payload any `yaml:"payload,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "converged": the listed replicas (default: all) are structurally equal
	// - "frontier": Replica's frontier is exactly the records in Labels
	// - "known_count": Replica knows exactly Count records, its head included
	// - "head_equals": Replica's head equals the head Ref resolves to
	Type string `yaml:"type"`

	Replica  string   `yaml:"replica,omitempty"`
	Replicas []string `yaml:"replicas,omitempty"`
	Labels   []string `yaml:"labels,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Ref      string   `yaml:"ref,omitempty"`
}

// Assertion type constants.
const (
	AssertConverged  = "converged"
	AssertFrontier   = "frontier"
	AssertKnownCount = "known_count"
	AssertHeadEquals = "head_equals"
)

// Kind returns the step operation name: "add", "merge" or "snapshot".
func (s Step) Kind() string {
	switch {
	case s.Add != nil:
		return "add"
	case s.Merge != "":
		return "merge"
	case s.Snapshot != "":
		return "snapshot"
	default:
		return ""
	}
}

// LoadScenario reads, schema-checks and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields, or breaks the scenario rules.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Strict decoding catches typos the schema would also reject, with
	// line numbers.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks the rules the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Replicas) == 0 {
		return fmt.Errorf("replicas list is required and must be non-empty")
	}
	for i, name := range s.Replicas {
		if name == "" {
			return fmt.Errorf("replicas[%d]: name is required", i)
		}
		if slices.Index(s.Replicas, name) != i {
			return fmt.Errorf("replicas[%d]: duplicate replica %q", i, name)
		}
	}

	labels := map[string]bool{}
	if s.Root != nil {
		labels[RootLabel] = true
	}
	for i, step := range s.Steps {
		if !slices.Contains(s.Replicas, step.Replica) {
			return fmt.Errorf("steps[%d]: unknown replica %q", i, step.Replica)
		}
		ops := 0
		for _, set := range []bool{step.Add != nil, step.Merge != "", step.Snapshot != ""} {
			if set {
				ops++
			}
		}
		if ops != 1 {
			return fmt.Errorf("steps[%d]: exactly one of add, merge or snapshot is required", i)
		}

		var label string
		switch {
		case step.Add != nil:
			label = step.Add.Label
			if label == "" {
				return fmt.Errorf("steps[%d].add: label is required", i)
			}
			if step.Expect != "" {
				// Failed adds bind no label.
				continue
			}
		case step.Snapshot != "":
			label = step.Snapshot
		default:
			continue
		}
		if labels[label] || slices.Contains(s.Replicas, label) {
			return fmt.Errorf("steps[%d]: label %q is already in use", i, label)
		}
		labels[label] = true
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, s.Replicas); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, replicas []string) error {
	needReplica := func() error {
		if !slices.Contains(replicas, a.Replica) {
			return fmt.Errorf("assertions[%d]: unknown replica %q for %s", index, a.Replica, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertConverged:
		for _, name := range a.Replicas {
			if !slices.Contains(replicas, name) {
				return fmt.Errorf("assertions[%d]: unknown replica %q for converged", index, name)
			}
		}
	case AssertFrontier:
		return needReplica()
	case AssertKnownCount:
		if a.Count < 1 {
			return fmt.Errorf("assertions[%d]: count must be positive for known_count", index)
		}
		return needReplica()
	case AssertHeadEquals:
		if a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for head_equals", index)
		}
		return needReplica()
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
