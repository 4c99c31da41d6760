// Package relstore provides the SQLite-backed relational copy of captured
// orders.
//
// The relational store is the secondary, queryable backend of the dual-write
// pipeline. The ledger stays authoritative; writes here are best-effort and
// at-least-once, made safe by an idempotent upsert keyed on the order id.
//
// # Critical Patterns
//
// Idempotent upsert
//   - INSERT ... ON CONFLICT(id) DO UPDATE
//   - On conflict only updated_at, status and total_amount change
//   - created_at is never rewritten, so retries are observable but harmless
//
// Idempotent provisioning
//   - schema.sql uses CREATE TABLE IF NOT EXISTS throughout
//   - Safe to run concurrently from multiple processes
//   - PRAGMA user_version carries incremental migrations
//
// Typed boundaries
//   - Addresses, line items and metadata travel as typed structs
//   - They are flattened to JSON TEXT columns only inside this package
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package relstore
