// Package store provides SQLite-backed persistence for hvaccore projects.
//
// It keeps two things:
//   - Projects: a snapshot of the entity store (table plus order), saved and
//     loaded as a whole entitystore.State. Bulk load never goes through
//     per-entity CRUD.
//   - Journal: an append-only log of executed commands in every direction,
//     each with the state fingerprint it produced. Replay re-applies the log
//     on top of a base state and reports the first step whose fingerprint
//     diverges.
//
// # Ordering
//
// Nothing orders by wall time. Entities keep their index position; journal
// rows keep a logical step counter. Queries always ORDER BY those integers.
//
// # Connection
//
// One connection, WAL journaling and a five second busy timeout. Foreign
// keys are on so deleting a project row drops its entity rows.
//
// Entity bodies are stored as canonical JSON (entity.MarshalCanonical), so
// saving the same state twice writes identical bytes.
package store
