// Package store provides SQLite-backed history of story builds.
//
// Every compile run can be recorded as a build with:
//   - Builds: one row per run (target, fingerprint, counts, outcome)
//   - Diagnostics: the compiler findings of the run, in report order
//   - Goals, Functions, Story Nodes: a summary of the emitted story graph
//
// # Ordering
//
// Builds are ordered by seq, assigned at insert time. Timestamps are
// informational only. Child rows are ordered by their index within the
// build, so reads return the order the compiler produced.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Child rows are deleted with their build
//
// Build IDs are UUIDv7 strings unless a generator is supplied with
// WithIDGenerator.
package store
