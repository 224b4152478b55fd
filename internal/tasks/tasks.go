// package tasks implements the weekly playlist copy and the schedule that drives it.
//
// Runs emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/desertthunder/weekcopy/internal/services"
	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/jonboulle/clockwork"
)

// TokenSource hands out a fresh access token for each run.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Journal records copy runs. [repositories.RunRepository] satisfies it.
type Journal interface {
	Create(run *models.CopyRun) error
	Update(run *models.CopyRun) error
}

// CopyResult describes a finished copy.
type CopyResult struct {
	Week       int                // ISO week the destination was named after
	TargetName string             // Destination playlist name
	Playlist   *services.Playlist // Created playlist, nil when skipped
	TrackCount int                // Number of URIs inserted
	SnapshotID string             // Provider snapshot after the insert
	Skipped    bool               // True when the source had no tracks
	RunID      string             // Journal row, empty when the journal is disabled
}

// CopyOptions holds the playlist settings of a copy.
type CopyOptions struct {
	SourcePlaylistID   string
	TargetNameTemplate string
	UserID             string
	Location           *time.Location // Time zone the ISO week is computed in; UTC when nil
}

// Copier copies the source playlist into a new private playlist named after the current ISO week.
type Copier struct {
	tokens    TokenSource
	playlists services.PlaylistService
	opts      CopyOptions
	logger    *log.Logger
	clock     clockwork.Clock
	journal   Journal
}

// CopierOption configures a [Copier].
type CopierOption func(*Copier)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) CopierOption {
	return func(c *Copier) { c.clock = clock }
}

// WithJournal records every run through j.
func WithJournal(j Journal) CopierOption {
	return func(c *Copier) { c.journal = j }
}

// NewCopier creates a [Copier].
func NewCopier(tokens TokenSource, playlists services.PlaylistService, opts CopyOptions, logger *log.Logger, options ...CopierOption) *Copier {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	c := &Copier{
		tokens:    tokens,
		playlists: playlists,
		opts:      opts,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ISOWeek returns the ISO-8601 week number of t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// TargetName replaces the first week placeholder in template with week.
func TargetName(template string, week int) string {
	return strings.Replace(template, shared.WeekPlaceholder, strconv.Itoa(week), 1)
}

// NextTargetName returns the name the destination would get if a run started now.
func (c *Copier) NextTargetName() string {
	return c.TargetNameAt(c.clock.Now())
}

// TargetNameAt returns the destination name for a run starting at t.
func (c *Copier) TargetNameAt(t time.Time) string {
	return TargetName(c.opts.TargetNameTemplate, ISOWeek(t.In(c.opts.Location)))
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs a manually triggered copy.
func (c *Copier) Run(ctx context.Context, progress chan<- ProgressUpdate) (*CopyResult, error) {
	return c.run(ctx, models.TriggerManual, progress)
}

// RunScheduled performs a copy on behalf of the scheduler.
func (c *Copier) RunScheduled(ctx context.Context) (*CopyResult, error) {
	return c.run(ctx, models.TriggerScheduled, nil)
}

func (c *Copier) run(ctx context.Context, trigger models.Trigger, progress chan<- ProgressUpdate) (*CopyResult, error) {
	now := c.clock.Now()
	week := ISOWeek(now.In(c.opts.Location))
	result := &CopyResult{Week: week, TargetName: TargetName(c.opts.TargetNameTemplate, week)}
	logger := shared.WithLogger(c.logger, "trigger", trigger, "week", week)

	run := c.startRun(logger, trigger, result, now)
	result, err := c.copy(ctx, logger, result, progress)
	c.finishRun(logger, run, result, err)
	if err != nil {
		return result, err
	}
	if run != nil {
		result.RunID = run.ID()
	}
	return result, nil
}

func (c *Copier) copy(ctx context.Context, logger *log.Logger, result *CopyResult, progress chan<- ProgressUpdate) (*CopyResult, error) {
	sendProgress(progress, authorizeUpdate())
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return result, err
	}

	sendProgress(progress, fetchSourceUpdate(c.opts.SourcePlaylistID))
	uris, err := c.playlists.PlaylistTrackURIs(ctx, token, c.opts.SourcePlaylistID)
	if err != nil {
		return result, fmt.Errorf("failed to fetch source playlist: %w", err)
	}

	if len(uris) == 0 {
		logger.Info("source playlist is empty, nothing to do", "source", c.opts.SourcePlaylistID)
		result.Skipped = true
		sendProgress(progress, emptySourceUpdate())
		return result, nil
	}

	sendProgress(progress, createPlaylistUpdate(result.TargetName, len(uris)))
	playlist, err := c.playlists.CreatePlaylist(ctx, token, c.opts.UserID, services.NewPlaylist{Name: result.TargetName, Public: false})
	if err != nil {
		return result, fmt.Errorf("failed to create playlist %q: %w", result.TargetName, err)
	}
	result.Playlist = playlist
	logger.Info("playlist created", "name", result.TargetName, "id", playlist.ID)

	sendProgress(progress, addTracksUpdate(playlist, len(uris)))
	added, err := c.playlists.AddTracks(ctx, token, playlist.ID, uris)
	if err != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrInsertRejected, err)
	}
	if added.StatusCode != http.StatusCreated {
		return result, fmt.Errorf("%w: status %d", shared.ErrInsertRejected, added.StatusCode)
	}

	result.TrackCount = len(uris)
	result.SnapshotID = added.SnapshotID
	logger.Info("tracks copied", "count", result.TrackCount, "playlist", playlist.ID)
	sendProgress(progress, doneUpdate(result))
	return result, nil
}

// startRun opens a journal row. Journal failures are logged and never fail the copy.
func (c *Copier) startRun(logger *log.Logger, trigger models.Trigger, result *CopyResult, now time.Time) *models.CopyRun {
	if c.journal == nil {
		return nil
	}
	run := models.NewCopyRun(trigger, result.Week, result.TargetName, c.opts.SourcePlaylistID, now.UTC())
	if err := c.journal.Create(run); err != nil {
		logger.Warn("failed to record copy run", "error", err)
		return nil
	}
	return run
}

func (c *Copier) finishRun(logger *log.Logger, run *models.CopyRun, result *CopyResult, err error) {
	if run == nil {
		return
	}
	if result.Playlist != nil {
		run.SetDestPlaylistID(result.Playlist.ID)
	}
	run.SetTrackCount(result.TrackCount)

	status := models.RunSucceeded
	if result.Skipped {
		status = models.RunSkipped
	}
	run.Finish(status, err)

	if err := c.journal.Update(run); err != nil {
		logger.Warn("failed to update copy run", "id", run.ID(), "error", err)
	}
}
