package harness

import (
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/engryamato/hvaccore/internal/entity"
)

// EntityReader is the read side of the entity store used by final_state.
type EntityReader interface {
	Get(id string) (entity.Entity, bool)
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s recorded=%v %s %v\n", ev.Step, ev.Op, ev.Recorded, ev.Command, ev.Affected)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, st EntityReader) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(st, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// matches reports whether a trace event ran the assertion's command.
func matches(ev TraceEvent, a Assertion, command string) bool {
	if !ev.Recorded || ev.Command != command {
		return false
	}
	return a.Op == "" || ev.Op == a.Op
}

// assertTraceContains checks that some recorded step ran the command.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if matches(ev, a, a.Command) {
			return nil
		}
	}
	expected := "command " + a.Command
	if a.Op != "" {
		expected += " via " + a.Op
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that commands first appear in the given order.
// Commands don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		for _, c := range a.Commands {
			if matches(ev, a, c) && positions[c] == 0 {
				positions[c] = i + 1 // 1-indexed so zero means absent
			}
		}
	}

	for _, c := range a.Commands {
		if positions[c] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all commands present: %v", a.Commands),
				Actual:   fmt.Sprintf("missing command: %s", c),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Commands); i++ {
		prev, curr := a.Commands[i-1], a.Commands[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("commands in order: %v", a.Commands),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the command appears exactly a.Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if matches(ev, a, a.Command) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Command),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks the entity's JSON form contains the expected
// fields. Nested objects are matched with the same subset semantics.
func assertFinalState(st EntityReader, a Assertion) error {
	e, ok := st.Get(a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("entity %s", a.ID),
			Actual:   "entity not found",
		}
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", a.ID, err)
	}
	actual := map[string]any{}
	if err := json.Unmarshal(raw, &actual); err != nil {
		return fmt.Errorf("unmarshal %s: %w", a.ID, err)
	}

	for _, key := range slices.Sorted(maps.Keys(a.Expect)) {
		if path, ok := subsetMatch(key, a.Expect[key], actual[key]); !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v", a.ID, path, lookup(a.Expect, path)),
				Actual:   fmt.Sprintf("%s.%s = %v", a.ID, path, lookup(actual, path)),
			}
		}
	}
	return nil
}

// subsetMatch compares expected against actual and returns the dotted path
// of the first mismatch.
func subsetMatch(path string, expected, actual any) (string, bool) {
	if exp, ok := expected.(map[string]any); ok {
		act, ok := actual.(map[string]any)
		if !ok {
			return path, false
		}
		for _, k := range slices.Sorted(maps.Keys(exp)) {
			if p, ok := subsetMatch(path+"."+k, exp[k], act[k]); !ok {
				return p, false
			}
		}
		return path, true
	}
	return path, valuesEqual(expected, actual)
}

// valuesEqual compares scalars after normalizing numbers to float64, since
// YAML decodes integers as int and JSON decodes every number as float64.
func valuesEqual(expected, actual any) bool {
	if ef, ok := toFloat(expected); ok {
		af, ok := toFloat(actual)
		return ok && ef == af
	}
	return reflect.DeepEqual(expected, actual)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// lookup resolves a dotted path for error messages.
func lookup(m map[string]any, path string) any {
	var cur any = m
	for _, part := range strings.Split(path, ".") {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[part]
	}
	return cur
}
