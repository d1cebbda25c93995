// Package store provides SQLite-backed history of evaluation runs.
//
// Every evaluate invocation that is given a history database records:
//   - Runs: one row per evaluation (run id, time, rule-set hash, snapshot)
//   - Signals: the emitted signals of a run, in emitted order
//
// # Ordering
//
// Signals within a run are keyed by (run_id, position) and always read back
// ORDER BY position ASC, so a run reproduces its original output order.
// Run listings are ordered newest first: ORDER BY evaluated_at DESC, id DESC.
//
// # Idempotency
//
// Writing a run whose id already exists is a no-op. Run ids are UUIDv7, so
// a retried write of the same evaluation never duplicates rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: signals reference runs
package store
