package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/weekcopy/internal/formatter"
	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/desertthunder/weekcopy/internal/repositories"
	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/urfave/cli/v3"
)

// History renders recorded copy runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": int(cmd.Int("limit"))}
	if status := strings.ToLower(cmd.String("status")); status != "" {
		if !slices.Contains(runStatuses(), status) {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
		}
		criteria["status"] = status
	}
	if trigger := strings.ToLower(cmd.String("trigger")); trigger != "" {
		if trigger != string(models.TriggerScheduled) && trigger != string(models.TriggerManual) {
			return fmt.Errorf("%w: unknown trigger %q", shared.ErrInvalidArgument, trigger)
		}
		criteria["trigger"] = trigger
	}

	db, closeJournal, err := r.journal()
	if err != nil {
		return err
	}
	defer closeJournal()
	if db == nil {
		return fmt.Errorf("%w: set database.path to record runs", shared.ErrMissingConfig)
	}

	runs, err := repositories.NewRunRepository(db).List(criteria)
	if err != nil {
		return err
	}
	r.logger.Debug("loaded copy runs", "count", len(runs))

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(runs, format, path); err != nil {
			return err
		}
		r.logger.Info("history written", "path", path, "format", format, "runs", len(runs))
		return r.writePlain("✓ Wrote %d runs to %s\n", len(runs), path)
	}

	data, err := formatter.Render(runs, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// latestRun returns the newest journal row, or nil when the journal is empty.
func latestRun(db *sql.DB) (*models.CopyRun, error) {
	run, err := repositories.NewRunRepository(db).Latest()
	if errors.Is(err, repositories.ErrRunNotFound) {
		return nil, nil
	}
	return run, err
}
