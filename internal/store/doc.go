// Package store provides SQLite-backed storage for scenario traces.
//
// A run is one execution of a scenario; its firings are the events that
// fired, in the order the harness observed them. Both are append-only and
// content-addressed (see internal/canon): writing the same run twice is a
// no-op.
//
// All ordering uses logical sequence numbers, never timestamps:
//   - runs are numbered by created_seq in write order
//   - firings are read back ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
