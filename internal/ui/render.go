package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/weekcopy/internal/tasks"
)

// RenderProgress formats one copy progress update as a status line.
// The update's message replaces the generic phase label when set.
func RenderProgress(u tasks.ProgressUpdate) string {
	var phase string
	switch u.Phase {
	case tasks.Authorize:
		phase = "Refreshing access token..."
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.CreatePlaylist:
		phase = "Creating playlist..."
	case tasks.AddTracks:
		phase = "Adding tracks..."
	case tasks.Done:
		return OK(fmt.Sprintf("[%d/%d] %s", u.Step, u.Total, u.Message))
	default:
		phase = "Processing..."
	}

	if u.Message != "" {
		phase = u.Message
	}
	return fmt.Sprintf("[%d/%d] %s", u.Step, u.Total, phase)
}

// RenderResult summarizes a finished copy. A nil result with a nil error renders nothing.
func RenderResult(result *tasks.CopyResult, err error) string {
	var b strings.Builder

	if err != nil {
		b.WriteString(Err(fmt.Sprintf("✗ Copy failed: %v", err)))
		if result != nil && result.Playlist != nil {
			b.WriteString("\n")
			b.WriteString(Warn(fmt.Sprintf("Playlist %q (%s) was created and left in place", result.Playlist.Name, result.Playlist.ID)))
		}
		return b.String()
	}

	if result == nil {
		return ""
	}

	if result.Skipped {
		return Warn(fmt.Sprintf("Source playlist is empty, %q was not created", result.TargetName))
	}

	b.WriteString(OK("✓ Copy Complete!"))
	fmt.Fprintf(&b, "\nPlaylist: %s", result.TargetName)
	if result.Playlist != nil {
		fmt.Fprintf(&b, " (%s)", result.Playlist.ID)
	}
	fmt.Fprintf(&b, "\nTracks: %d", result.TrackCount)
	if result.RunID != "" {
		b.WriteString("\n")
		b.WriteString(Help("run " + result.RunID))
	}
	return b.String()
}

// RenderNext describes the next scheduled fire time relative to now.
func RenderNext(next, now time.Time, target string) string {
	if next.IsZero() {
		return Warn("No upcoming run")
	}
	wait := next.Sub(now).Round(time.Minute)
	return fmt.Sprintf("Next run: %s (in %s) as %q", next.Format("Mon 2006-01-02 15:04 MST"), wait, target)
}
