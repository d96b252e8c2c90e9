// Package catalog turns a scanned tool directory into loaded, servable tool
// entries.
//
// Build runs the scanner, loads every sidecar definition, and records an
// entry per executable with one of three statuses: ready, invalid, or
// unresolved (embedded metadata, which is not extracted). Snapshots can be
// persisted to a Store and kept current with a Watcher.
package catalog
