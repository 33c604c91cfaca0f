// Package store provides SQLite-backed storage for working-copy metadata.
//
// Tables:
//   - nodes: one row per (relpath, op_depth) layer; BASE is op_depth 0
//   - actual_node: working properties and conflict records
//   - repository: repository roots referenced by node rows
//   - work_queue: deferred filesystem work, drained after commit
//
// # Layers
//
// A local operation rooted at relpath R writes rows at op_depth equal to
// the number of components of R. The effective state of a path is its
// highest row; lower rows are shadowed, not deleted. A move is recorded on
// the source delete root (moved_to) and on every destination row
// (moved_here), with moved_from on the destination root.
//
// # Determinism
//
// Every multi-row read orders by local_relpath COLLATE BINARY, so parents
// are returned before their children and sibling order is byte-wise.
//
// # Transactions
//
// All reconciliation work runs inside Store.WithTx. The pool holds a single
// connection; code running inside a transaction must use the Tx it was
// handed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
