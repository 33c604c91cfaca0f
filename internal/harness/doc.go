// Package harness runs reconciliation scenarios end to end.
//
// Each scenario builds a fresh working copy in a temporary directory from
// its fixture, opens it the way the command line does, runs the flow
// through a real reconcile.Engine and evaluates assertions against the
// trace, the metadata store and the files on disk.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: reconcile_added_file
//	description: "What this scenario validates"
//	run_token: test-run-001
//	fixture:
//	  base:
//	    - {path: X, kind: dir, rev: 1}
//	  moves:
//	    - {from: X, to: Y}
//	  update:
//	    - {path: X, kind: dir, rev: 2}
//	    - {path: X/f, kind: file, rev: 2, content: "hi"}
//	  victims:
//	    - {path: X, old_rev: 1, new_rev: 2}
//	flow:
//	  - op: reconcile
//	    path: X
//	  - op: break-move
//	    path: Z
//	    expect: {case: NOT_MOVED}
//	  - op: run-queue
//	assertions:
//	  - {type: notification, path: Y/f, action: added}
//	  - {type: node, path: Y/f, op_depth: 1, moved_here: true}
//	  - {type: file, path: Y/f, content: "hi"}
//
// The fixture section is a fixture.Spec; see that package for its fields.
//
// # Assertion Types
//
//   - notification: a notification for path matches every given field
//   - notification_count: exactly count notifications were produced
//   - conflict / no_conflict: path does or does not carry a conflict
//   - node / no_node: a row does or does not exist at (path, op_depth)
//   - file: the working file at path has content
//   - work_count: exactly count work items are still pending
//
// # Deterministic Testing
//
// Every operation of a scenario reports the scenario's run_token, and trace
// events are numbered by a logical clock, so traces are identical across
// runs and can be compared against golden files with RunWithGolden.
package harness
