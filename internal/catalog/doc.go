// Package catalog models mise tasks as a namespace tree and derives the
// navigation order the UI walks.
//
// Task names are split on ":" into groups and a leaf task, so the tasks
// "frontend:build:dev" and "frontend:build:prod" share the groups
// "frontend" and "frontend:build". Nodes live in an arena and are addressed
// internally by a stable [NodeID]; a [Path] of names is the external address.
// Renames change only a node's name, so state keyed by NodeID survives them
// untouched.
//
// # Thread Safety
//
// [Tree] and [Index] are not safe for concurrent use. They are owned by the
// dispatcher's event loop, which serializes every read and write.
package catalog
