// Package tasks performs the weekly playlist copy and schedules it.
//
// # Copy
//
// [Copier.Run] walks four phases:
//
//  1. obtain a fresh access token from the [TokenSource] (the credential manager)
//  2. fetch the source playlist's track URIs, first page only
//  3. create a private playlist named after the current ISO week ([TargetName])
//  4. insert every URI in one request; anything but 201 Created fails with [shared.ErrInsertRejected]
//
// An empty source ends the run after phase 2 with [CopyResult.Skipped] set and nothing created.
// A created playlist is never rolled back, and two runs in one week create two playlists of the same name.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Journal
//
// The optional [Journal] (repositories.RunRepository) records one row per run with its outcome.
// Journal errors are logged and ignored.
//
// # Scheduling
//
// [Scheduler] wraps robfig/cron with a fixed time zone, skip-if-still-running and panic recovery.
// Every fire gets its own deadline, errors are logged, and the schedule keeps going.
package tasks
