package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/weekcopy/internal/credentials"
	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/desertthunder/weekcopy/internal/ui"
	"github.com/urfave/cli/v3"
)

var errBrowserDisabled = errors.New("browser disabled")

// Auth runs the interactive authorization and saves the refresh token.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []credentials.Option
	if cmd.Bool("no-browser") {
		opts = append(opts, credentials.WithOpener(func(string) error { return errBrowserDisabled }))
	}

	mgr, err := r.credentials(opts...)
	if err != nil {
		return err
	}

	cred, err := mgr.Authorize(ctx)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK("✓ Successfully authenticated with Spotify"))
	r.writePlain("Refresh token saved to: %s\n", r.config.Token.Path)
	if !cred.Expiry.IsZero() {
		r.writePlain("Access token expires: %s\n", cred.Expiry.Format(time.RFC3339))
	}
	return nil
}

// StatusReport is the JSON form of the status command.
type StatusReport struct {
	UserID       string          `json:"user_id"`
	DisplayName  string          `json:"display_name,omitempty"`
	ConfigUserID string          `json:"config_user_id,omitempty"`
	UserMatches  bool            `json:"user_matches"`
	NextRun      time.Time       `json:"next_run,omitzero"`
	NextName     string          `json:"next_name,omitempty"`
	LastRun      *models.CopyRun `json:"last_run,omitempty"`
}

// Status refreshes the stored credential, looks up the authenticated user and reports the next scheduled run.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	mgr, err := r.credentials()
	if err != nil {
		return err
	}
	client, err := r.client()
	if err != nil {
		return err
	}

	token, err := mgr.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("%w (run 'weekcopy auth')", err)
	}

	user, err := client.CurrentUser(ctx, token)
	if err != nil {
		return err
	}

	report := StatusReport{
		UserID:       user.ID,
		DisplayName:  user.DisplayName,
		ConfigUserID: r.config.Copy.UserID,
		UserMatches:  r.config.Copy.UserID == "" || r.config.Copy.UserID == user.ID,
	}
	if !report.UserMatches {
		r.logger.Warn("authenticated user differs from the configured user id",
			"authenticated", user.ID, "configured", r.config.Copy.UserID)
	}

	if copier, err := r.copier(mgr, nil); err != nil {
		r.logger.Warn("schedule unavailable", "error", err)
	} else if scheduler, err := r.scheduler(copier); err != nil {
		r.logger.Warn("schedule unavailable", "error", err)
	} else {
		report.NextRun = scheduler.Next()
		report.NextName = copier.TargetNameAt(report.NextRun)
	}

	if db, closeJournal, err := r.journal(); err != nil {
		r.logger.Warn("journal unavailable", "error", err)
	} else if db != nil {
		defer closeJournal()
		last, err := latestRun(db)
		if err != nil {
			r.logger.Warn("failed to read last run", "error", err)
		}
		report.LastRun = last
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("Status")
	r.writePlain("%s\n", ui.OK("✓ Refresh token valid"))
	r.writePlain("User: %s (%s)\n", report.DisplayName, report.UserID)
	if !report.UserMatches {
		r.writePlain("%s\n", ui.Warn(fmt.Sprintf("⚠ %s is %q but the token belongs to %q", shared.EnvUserID, report.ConfigUserID, report.UserID)))
	}
	if !report.NextRun.IsZero() {
		r.writePlain("%s\n", ui.RenderNext(report.NextRun, time.Now().In(report.NextRun.Location()), report.NextName))
	}
	if last := report.LastRun; last != nil {
		r.writePlain("Last run: #%d %s - %s\n", last.Sequence(), last.TargetName(), last.Status())
	}
	return nil
}
