// Package reconcile carries incoming changes through local moves.
//
// A local move records its source as a delete (with a moved-to reference)
// and its destination as a copy whose rows are marked moved-here. When an
// update or switch changes the tree under the source, the destination still
// holds the old copy. This package brings the destination up to date as if
// the change had happened at the destination, merging with local edits and
// raising tree conflicts where they collide.
//
// ARCHITECTURE:
//
// Per move, one pipeline runs inside the caller's transaction:
// 1. The walker compares the source layer with the destination layer depth
//    first and emits add, alter and delete edits.
// 2. The receiver applies each edit: it checks for local changes above the
//    destination, merges text and properties, queues filesystem work and
//    queues notifications.
// 3. replaceLayer rewrites the destination layer from the source layer.
// 4. syncSourceDelete keeps the move's delete covering the new source.
//
// Entry points:
// - ReconcileMovedSubtree resolves a moved-away tree conflict.
// - PropagateBump runs after a BASE bump, for every move fed by BASE under
//   the bumped root, then recursively for moves out of each destination.
// - BreakMove and BreakMovedChildren turn moves into plain delete+copy.
//
// CRITICAL PATTERNS:
//
// One transaction per call. Rows, ACTUAL state and work items commit
// together; the working tree is only touched by the work queue after commit.
//
// One conflict per subtree. Once a conflict is raised at a root, the rest
// of the walk skips every path below it.
//
// Notifications are stamped from a per-call Clock and only returned after
// the commit.
package reconcile
