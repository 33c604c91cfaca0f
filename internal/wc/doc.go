// Package wc defines the domain types shared by the wcmove packages.
//
// The working-copy metadata store keeps, for every tracked path, a stack of
// layers identified by op-depth:
//   - op-depth 0 is BASE, the last-known repository state
//   - op-depth N > 0 is a local operation (copy, move, replace) rooted at a
//     path with N components
//
// A path's effective state is its highest present op-depth row. Lower rows
// are shadowed, never rewritten, by higher ones.
//
// # Paths
//
// All paths handled by this package are working-copy relative ("relpaths"):
// forward-slash separated, no leading or trailing slash, "" for the root,
// NFC normalized. Use Normalize at input boundaries.
//
// # Serialization
//
// Property sets and conflict records are persisted as canonical JSON
// (sorted keys, NFC strings, no HTML escaping) so that equal values always
// produce equal bytes. Conflict markers are a sealed tagged union; see
// conflict.go.
package wc
