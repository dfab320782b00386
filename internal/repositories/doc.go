// Package repositories implements SQLite persistence for accounts.
//
// [UserRepository] stores the local accounts behind email/password and OAuth sign-in. Lookups by email are
// case-insensitive and exclude soft-deleted rows, so an address can be registered again after its account
// is deleted.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
