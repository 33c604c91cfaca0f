// Package merge is the three-way merge primitive used when an incoming
// change meets a locally modified node.
//
// Both merges take the same three sides:
//   - base: the pre-update (old) pristine state
//   - incoming: the post-update (new) pristine state
//   - working: what the user currently has
//
// A merge either succeeds (Merged) or reports a clash (Conflicted). A
// conflicted text merge still returns content: the working text with
// conflict markers around the disagreeing sides.
package merge
