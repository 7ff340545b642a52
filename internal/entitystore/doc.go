// Package entitystore is the normalized object table of the canvas: a map
// of entities keyed by id plus an explicit insertion-ordered index.
//
// After every mutation the store rebuilds the connection graph and
// recomputes derived airflow, so readers always observe state where each
// flow-carrying entity's airflow matches the current topology. Batch
// operations recompute once per batch.
//
// The store never returns errors for routine conditions. Missing ids are
// silent no-ops and duplicate inserts are logged and ignored, because
// undo, redo and batch flows routinely re-issue operations whose target is
// already gone.
//
// Thread-safety: a Store is owned by a single writer (normally a
// command.Layer). It is not safe for concurrent mutation.
package entitystore
