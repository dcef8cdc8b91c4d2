// Package syncer implements the sync controller: the state machine that
// reconciles the local store with the remote store.
//
// A sync cycle has two phases. The pull phase fetches the authoritative
// catalog and bulk-upserts it locally; a pull failure is reported to the
// caller but never blocks the push phase. The push phase walks the
// pending transaction ids, delivering each with a bounded per-cycle
// retry budget; one transaction exhausting its budget never blocks the
// others. Metadata is persisted after every resolved transaction, so a
// crash mid-cycle loses at most the in-flight transaction's retry
// progress, never an already-acknowledged one.
//
// Single-flight: at most one cycle runs at a time. A trigger arriving
// while a cycle is in progress is dropped, not queued.
//
// The immediate-write path (SaveTransaction) always writes to the local
// store before touching the network. Local durability is never skipped
// because of anticipated network failure.
//
// Thread-safety model:
//   - Sync, SaveTransaction, SetOnline: safe from any goroutine.
//   - The in-progress flag is the only in-memory shared state, guarded
//     by a mutex; the durable SyncState is written only by this
//     controller.
package syncer
