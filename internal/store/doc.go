// Package store provides the SQLite-backed local store for the POS
// client: catalog products, recorded transactions, and the singleton
// sync-metadata record.
//
// The store is a passive data holder with no network awareness. All
// operations are atomic at single-entity granularity; the only
// multi-entity operation is the bulk product upsert, where partial
// application is tolerated because products are idempotently re-synced
// on the next catalog pull.
//
// Write semantics:
//   - Product and transaction writes are idempotent upserts keyed by id
//     (ON CONFLICT(id) DO UPDATE). Overwrites are not errors.
//   - The sync_state table holds exactly one row (key pinned by CHECK).
//     First read durably writes a default record so later reads are
//     stable.
//
// Storage layout:
//   - Money columns store exact decimal strings, never floats.
//   - Transaction line items are a denormalized JSON snapshot column.
//   - Timestamps are RFC 3339 UTC text; empty text means "never".
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
