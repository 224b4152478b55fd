// Package repositories implements SQLite persistence for the run journal.
//
// [RunRepository] stores one row per copy attempt and supports soft deletes via deleted_at timestamps;
// deleted rows are excluded from queries.
//
// Sequence numbers provide stable, human-readable ordering (run #1, #2, ...) independent of UUIDs and clock skew.
// [NextSequence] bumps the counter in the same transaction as the insert.
package repositories
