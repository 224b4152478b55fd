// Package ui renders terminal output for the command line with [lipgloss] styles.
//
// The package-level [Palette] colors titles, success, errors, warnings and help text.
// [RenderProgress] turns each [tasks.ProgressUpdate] of a manual copy into a status line,
// and [RenderResult] summarizes the outcome, including a created playlist that was left behind by a failed insert.
package ui
