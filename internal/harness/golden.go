package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/engryamato/hvaccore/internal/entity"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// It serializes through canonical JSON so golden files are byte-stable.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Pass         bool         `json:"pass"`
	Trace        []TraceEvent `json:"trace"`
}

// Marshal renders the snapshot as canonical JSON. Fingerprints are
// dropped: they change with any entity encoding change, and replay tests
// cover them.
func (s TraceSnapshot) Marshal() ([]byte, error) {
	trace := make([]TraceEvent, len(s.Trace))
	for i, ev := range s.Trace {
		ev.Fingerprint = ""
		trace[i] = ev
	}
	s.Trace = trace
	return entity.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := TraceSnapshot{
		ScenarioName: scenarioName,
		Pass:         result.Pass,
		Trace:        result.Trace,
	}.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
