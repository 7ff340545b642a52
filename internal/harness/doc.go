// Package harness runs canvas scenarios against the command layer.
//
// A scenario hydrates a starting canvas, performs user operations through
// the command layer and checks the state after each step. Every run gets a
// fresh entity store, flow engine, history and selection, with a
// deterministic clock and sequential command ids, so traces are
// reproducible and can be compared against golden files.
//
// # Scenario Format
//
//	name: duct_chain_undo
//	description: "Propagation follows create, update and undo"
//	config:
//	  history_max_size: 10
//	setup:
//	  - id: d1
//	    type: equipment
//	    connected_to: duct1
//	    props: { equipmentType: diffuser, capacity: 500 }
//	  - id: duct1
//	    type: duct
//	steps:
//	  - op: update
//	    id: d1
//	    patch: { props: { capacity: 1000 } }
//	    expect:
//	      recorded: true
//	      airflow: { d1: 1000, duct1: 1000 }
//	  - op: undo
//	    expect: { past: 0, future: 1 }
//	assertions:
//	  - type: trace_contains
//	    command: UPDATE_ENTITY
//	  - type: final_state
//	    id: d1
//	    expect: { props: { capacity: 500 } }
//
// Props use the entity JSON field names and overlay the kind defaults.
//
// # Assertion Types
//
//   - trace_contains: a recorded step ran the command type
//   - trace_order: command types first appear in the given order
//   - trace_count: a command type appears exactly N times
//   - final_state: the entity's JSON form contains the expected fields
package harness
