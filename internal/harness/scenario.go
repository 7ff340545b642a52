package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/engryamato/hvaccore/internal/entity"
)

// Scenario defines a conformance scenario: a canvas to start from, a list
// of user operations to perform through the command layer, and the
// expected state after each step.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides engine defaults for this scenario.
	Config *ScenarioConfig `yaml:"config,omitempty"`

	// Setup entities are hydrated before the first step. They produce no
	// history and leave the selection empty.
	Setup []EntitySpec `yaml:"setup,omitempty"`

	// Steps are executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ScenarioConfig overrides engine defaults.
type ScenarioConfig struct {
	HistoryMaxSize       int                    `yaml:"history_max_size,omitempty"`
	SourceEquipmentTypes []entity.EquipmentType `yaml:"source_equipment_types,omitempty"`
}

// EntitySpec describes an entity in YAML. Props overlay the kind's
// defaults; name defaults to the id.
type EntitySpec struct {
	ID          string         `yaml:"id"`
	Type        entity.Kind    `yaml:"type"`
	ConnectedTo string         `yaml:"connected_to,omitempty"`
	X           float64        `yaml:"x,omitempty"`
	Y           float64        `yaml:"y,omitempty"`
	ZIndex      int            `yaml:"z_index,omitempty"`
	Props       map[string]any `yaml:"props,omitempty"`
}

// PatchSpec describes a partial update in YAML. Props overlay the current
// props of the target.
type PatchSpec struct {
	ConnectedTo *string        `yaml:"connected_to,omitempty"`
	ZIndex      *int           `yaml:"z_index,omitempty"`
	Props       map[string]any `yaml:"props,omitempty"`
}

// UpdateSpec targets one entity in an update_batch step.
type UpdateSpec struct {
	ID        string `yaml:"id"`
	PatchSpec `yaml:",inline"`
}

// MoveSpec moves one entity to (X, Y).
type MoveSpec struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// Step is one user operation.
type Step struct {
	// Op selects the operation; see the Op constants.
	Op string `yaml:"op"`

	Entity   *EntitySpec  `yaml:"entity,omitempty"`   // create
	Entities []EntitySpec `yaml:"entities,omitempty"` // create_batch, hydrate
	ID       string       `yaml:"id,omitempty"`       // update, delete
	IDs      []string     `yaml:"ids,omitempty"`      // delete_batch, select
	Patch    *PatchSpec   `yaml:"patch,omitempty"`    // update
	Updates  []UpdateSpec `yaml:"updates,omitempty"`  // update_batch
	Moves    []MoveSpec   `yaml:"moves,omitempty"`    // move

	// Expect is checked after the step. Nil checks nothing.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpCreate      = "create"
	OpCreateBatch = "create_batch"
	OpUpdate      = "update"
	OpUpdateBatch = "update_batch"
	OpDelete      = "delete"
	OpDeleteBatch = "delete_batch"
	OpMove        = "move"
	OpUndo        = "undo"
	OpRedo        = "redo"
	OpSelect      = "select"
	OpHydrate     = "hydrate"
)

// Expect lists the checks to run after a step. Unset fields are skipped.
type Expect struct {
	// Recorded is the boolean the operation returned.
	Recorded *bool `yaml:"recorded,omitempty"`

	// Airflow maps entity ids to their expected derived airflow.
	Airflow map[string]float64 `yaml:"airflow,omitempty"`

	// Selection is the expected selection, in order.
	Selection *[]string `yaml:"selection,omitempty"`

	Count  *int `yaml:"count,omitempty"`
	Past   *int `yaml:"past,omitempty"`
	Future *int `yaml:"future,omitempty"`

	Exists []string `yaml:"exists,omitempty"`
	Absent []string `yaml:"absent,omitempty"`

	// Order is the expected ordered index of entity ids.
	Order []string `yaml:"order,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a recorded step ran the given command type
	// - "trace_order": command types appear in order
	// - "trace_count": a command type appears exactly N times
	// - "final_state": an entity's JSON form contains the expected fields
	Type string `yaml:"type"`

	// Command is the command type (trace_contains, trace_count).
	Command string `yaml:"command,omitempty"`

	// Op narrows trace_contains and trace_count to one step operation.
	Op string `yaml:"op,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Commands is the expected command order (trace_order).
	Commands []string `yaml:"commands,omitempty"`

	// ID selects the entity (final_state).
	ID string `yaml:"id,omitempty"`

	// Expect contains expected field values (final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.Config != nil && s.Config.HistoryMaxSize < 0 {
		return fmt.Errorf("config.history_max_size must be non-negative")
	}

	for i, e := range s.Setup {
		if err := validateEntitySpec(e); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateEntitySpec(e EntitySpec) error {
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("entity %s: unknown type %q", e.ID, e.Type)
	}
	return nil
}

// validateStep checks that a step carries the arguments its op needs.
// Entity specs are not validated here: feeding malformed entities to the
// command layer is a legitimate scenario.
func validateStep(s Step) error {
	switch s.Op {
	case OpCreate:
		if s.Entity == nil {
			return fmt.Errorf("create: entity is required")
		}
	case OpCreateBatch, OpHydrate:
		if s.Entities == nil {
			return fmt.Errorf("%s: entities is required (use [] for none)", s.Op)
		}
	case OpUpdate:
		if s.ID == "" || s.Patch == nil {
			return fmt.Errorf("update: id and patch are required")
		}
	case OpUpdateBatch:
		if s.Updates == nil {
			return fmt.Errorf("update_batch: updates is required (use [] for none)")
		}
	case OpDelete:
		if s.ID == "" {
			return fmt.Errorf("delete: id is required")
		}
	case OpDeleteBatch, OpSelect:
		if s.IDs == nil {
			return fmt.Errorf("%s: ids is required (use [] for none)", s.Op)
		}
	case OpMove:
		if s.Moves == nil {
			return fmt.Errorf("move: moves is required (use [] for none)")
		}
	case OpUndo, OpRedo:
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("assertions[%d]: commands list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
