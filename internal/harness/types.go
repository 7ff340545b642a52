package harness

import "github.com/engryamato/hvaccore/internal/entitystore"

// TraceEvent records one executed step and the state it left behind.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`

	// Recorded is what the operation returned. Select and hydrate always
	// report true.
	Recorded bool `json:"recorded"`

	// Command is the type of the command applied, undone or redone.
	Command string `json:"command,omitempty"`

	// Affected lists the ids the command touched.
	Affected []string `json:"affected,omitempty"`

	Past      int                `json:"past"`
	Future    int                `json:"future"`
	Selection []string           `json:"selection"`
	Order     []string           `json:"order"`
	Airflow   map[string]float64 `json:"airflow"`

	// Fingerprint hashes the whole entity table after the step. Golden
	// snapshots leave it out.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion
	// held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the canvas after the last step.
	State entitystore.State `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
