// Package validation checks canvas entities against their prop schemas and
// reports system-level warnings such as overloaded equipment and
// connection loops.
//
// Prop ranges live in an embedded CUE schema. Schema violations are
// blockers; graph-derived findings are warnings. Results are cached per
// entity id so the command layer can refresh only what a mutation touched.
package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/flow"
	"github.com/engryamato/hvaccore/internal/graph"
)

//go:embed schema.cue
var schemaSource []byte

// Severity ranks a violation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityBlocker Severity = "blocker"
)

// Rule ids.
const (
	RuleKind               = "schema.kind"
	RuleCapacityOverload   = "capacity.overload"
	RuleConnectionCycle    = "connection.cycle"
	RuleConnectionDangling = "connection.dangling"
)

// SchemaRule returns the rule id for schema checks of kind k.
func SchemaRule(k entity.Kind) string {
	return "schema." + string(k)
}

// Violation is one finding against an entity.
type Violation struct {
	RuleID   string   `json:"ruleId"`
	EntityID string   `json:"entityId"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (v Violation) String() string {
	if v.Field != "" {
		return fmt.Sprintf("[%s] %s %s: %s", v.Severity, v.EntityID, v.Field, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Severity, v.EntityID, v.Message)
}

var definitions = map[entity.Kind]string{
	entity.KindRoom:      "#Room",
	entity.KindDuct:      "#Duct",
	entity.KindEquipment: "#Equipment",
	entity.KindFitting:   "#Fitting",
}

// Validator caches violations per entity. It implements command.Validator.
// Not safe for concurrent use.
type Validator struct {
	ctx     *cue.Context
	defs    map[entity.Kind]cue.Value
	engine  *flow.Engine
	logger  *slog.Logger
	results map[string][]Violation

	// schema memoizes schema checks by content hash of id, kind and props,
	// so moves and airflow changes do not re-run CUE.
	schema map[string]schemaResult
}

type schemaResult struct {
	hash string
	vs   []Violation
}

// Option configures a Validator.
type Option func(*Validator)

// WithFlowEngine sets the engine whose source types decide which equipment
// is checked for overload. Use the same engine as the entity store.
func WithFlowEngine(e *flow.Engine) Option {
	return func(v *Validator) {
		if e != nil {
			v.engine = e
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// New compiles the embedded schema and returns a Validator.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		ctx:     cuecontext.New(),
		defs:    make(map[entity.Kind]cue.Value, len(definitions)),
		engine:  flow.New(),
		logger:  slog.Default(),
		results: make(map[string][]Violation),
		schema:  make(map[string]schemaResult),
	}
	for _, opt := range opts {
		opt(v)
	}

	schema := v.ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	for k, name := range definitions {
		def := schema.LookupPath(cue.ParsePath(name))
		if !def.Exists() {
			return nil, fmt.Errorf("schema: missing definition %s", name)
		}
		v.defs[k] = def
	}
	return v, nil
}

// Validate checks e against its schema and caches the result. The check is
// skipped when e's kind and props hash the same as last time.
func (v *Validator) Validate(e entity.Entity) {
	vs := v.schemaViolations(e)
	if len(vs) == 0 {
		delete(v.results, e.ID)
		return
	}
	v.results[e.ID] = vs
	v.logger.Debug("validation: violations", "id", e.ID, "count", len(vs))
}

// Clear drops the cached result for id.
func (v *Validator) Clear(id string) {
	delete(v.results, id)
	delete(v.schema, id)
}

// Reset drops every cached result.
func (v *Validator) Reset() {
	clear(v.results)
	clear(v.schema)
}

// Result returns the cached violations for id.
func (v *Validator) Result(id string) ([]Violation, bool) {
	vs, ok := v.results[id]
	return slices.Clone(vs), ok
}

// Results returns a copy of every cached result keyed by entity id.
func (v *Validator) Results() map[string][]Violation {
	out := make(map[string][]Violation, len(v.results))
	for id, vs := range v.results {
		out[id] = slices.Clone(vs)
	}
	return out
}

// HasBlockers reports whether any cached violation is a blocker.
func (v *Validator) HasBlockers() bool {
	for _, vs := range v.results {
		for _, x := range vs {
			if x.Severity == SeverityBlocker {
				return true
			}
		}
	}
	return false
}

// ValidateAll rebuilds the cache from scratch: schema checks for every
// entity plus graph-wide warnings (overloaded equipment, connection loops,
// dangling connections). Returns every violation in entity order.
func (v *Validator) ValidateAll(entities []entity.Entity, g *graph.Graph, flows map[string]float64) []Violation {
	clear(v.results)
	byID := make(map[string]entity.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
		if vs := v.schemaViolations(e); len(vs) > 0 {
			v.results[e.ID] = vs
		}
	}
	maps.DeleteFunc(v.schema, func(id string, _ schemaResult) bool {
		_, ok := byID[id]
		return !ok
	})
	if g == nil {
		g = graph.Build(entities)
	}

	add := func(x Violation) {
		v.results[x.EntityID] = append(v.results[x.EntityID], x)
	}
	for _, e := range entities {
		if e.ConnectedTo != "" && !g.Has(e.ConnectedTo) {
			add(Violation{
				RuleID:   RuleConnectionDangling,
				EntityID: e.ID,
				Field:    "connectedTo",
				Message:  fmt.Sprintf("connected to missing entity %q", e.ConnectedTo),
				Severity: SeverityWarning,
			})
		}
	}
	for _, c := range g.Cycles() {
		add(Violation{
			RuleID:   RuleConnectionCycle,
			EntityID: c.Path[0],
			Message:  c.Message,
			Severity: SeverityWarning,
		})
	}
	for _, o := range v.engine.CapacityReport(g, byID, flows) {
		add(Violation{
			RuleID:   RuleCapacityOverload,
			EntityID: o.ID,
			Field:    "capacity",
			Message:  o.Message,
			Severity: SeverityWarning,
		})
	}

	var out []Violation
	for _, e := range entities {
		out = append(out, v.results[e.ID]...)
	}
	v.logger.Debug("validation: full pass", "entities", len(entities), "violations", len(out))
	return out
}

// schemaViolations returns the schema findings for e, from the memo when
// its content hash is unchanged. Entities that cannot be hashed are always
// checked.
func (v *Validator) schemaViolations(e entity.Entity) []Violation {
	h, err := entity.Hash(entity.Entity{ID: e.ID, Kind: e.Kind, Props: e.Props})
	if err != nil {
		delete(v.schema, e.ID)
		return v.check(e)
	}
	if m, ok := v.schema[e.ID]; ok && m.hash == h {
		return slices.Clone(m.vs)
	}
	vs := v.check(e)
	v.schema[e.ID] = schemaResult{hash: h, vs: slices.Clone(vs)}
	return vs
}

// check runs the schema checks for one entity.
func (v *Validator) check(e entity.Entity) []Violation {
	switch {
	case !e.Kind.Valid():
		return []Violation{blocker(RuleKind, e.ID, "type", fmt.Sprintf("unknown kind %q", e.Kind))}
	case e.Props == nil:
		return []Violation{blocker(RuleKind, e.ID, "props", "missing props")}
	case e.Props.Kind() != e.Kind:
		return []Violation{blocker(RuleKind, e.ID, "props",
			fmt.Sprintf("%s props on %s entity", e.Props.Kind(), e.Kind))}
	}

	rule := SchemaRule(e.Kind)
	data, err := json.Marshal(e.Props)
	if err != nil {
		return []Violation{blocker(rule, e.ID, "", err.Error())}
	}
	val := v.ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return []Violation{blocker(rule, e.ID, "", err.Error())}
	}

	err = v.defs[e.Kind].Unify(val).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var out []Violation
	seen := make(map[string]bool)
	for _, ce := range cueerrors.Errors(err) {
		field := strings.Join(ce.Path(), ".")
		msg := message(ce)
		if seen[field+msg] {
			continue
		}
		seen[field+msg] = true
		out = append(out, blocker(rule, e.ID, field, msg))
	}
	slices.SortStableFunc(out, func(a, b Violation) int { return strings.Compare(a.Field, b.Field) })
	return out
}

// message renders a CUE error without its path prefix.
func message(e cueerrors.Error) string {
	format, args := e.Msg()
	return fmt.Sprintf(format, args...)
}

func blocker(rule, id, field, msg string) Violation {
	return Violation{RuleID: rule, EntityID: id, Field: field, Message: msg, Severity: SeverityBlocker}
}

// Count returns the number of cached violations by severity.
func (v *Validator) Count() map[Severity]int {
	out := make(map[Severity]int)
	for _, vs := range v.results {
		for _, x := range vs {
			out[x.Severity]++
		}
	}
	return out
}
