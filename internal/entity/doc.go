// Package entity defines the typed canvas objects shared by every other
// internal package: rooms, ducts, equipment and fittings.
//
// entity imports nothing internal. All other internal packages import
// entity; this keeps the data model the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - User-owned fields live in Props; system-owned fields live in Derived
//   - Derived is written only by flow recomputation, never through a Patch
//   - JSON tags use camelCase to match the project file format
//   - Read results are snapshots (see Entity.Clone)
package entity
