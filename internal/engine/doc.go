// Package engine implements the two-way task synchronization engine.
//
// The [Engine] reconciles the local hierarchical task store against remote
// task services, one pass per account: list reconciliation first, then per
// list a full or delta task fetch applied to the store, then a push of
// locally dirty and deleted tasks (parents before children). Accounts sync
// concurrently; a per-account in-flight guard rejects overlapping passes
// for the same account rather than queueing them.
//
// Conflict handling is deliberately blunt: a task whose modification date
// is newer than its link's lastSync watermark is dirty, and incoming remote
// updates for it are discarded whole until the next push flushes local
// state. There is no field-level merge.
package engine
