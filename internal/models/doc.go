// Package models defines the records kept by the optional run journal.
//
// [CopyRun] tracks one invocation of the weekly copy: what triggered it, the ISO week and destination name
// it computed, the playlist it created, how many tracks it inserted, and how it ended.
//
// Runs move from [RunPending] to exactly one terminal status: [RunSucceeded], [RunSkipped] (empty source)
// or [RunFailed] (with the error message kept).
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
