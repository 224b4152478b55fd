package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/desertthunder/weekcopy/internal/tasks"
	"github.com/desertthunder/weekcopy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Serve obtains a credential, then runs the copy on every scheduled tick until SIGINT or SIGTERM.
//
// Scheduled failures are logged and never stop the process.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := r.credentials()
	if err != nil {
		return err
	}
	if _, err := mgr.Ensure(ctx); err != nil {
		return err
	}

	db, closeJournal, err := r.journal()
	if err != nil {
		return err
	}
	defer closeJournal()

	copier, err := r.copier(mgr, db)
	if err != nil {
		return err
	}

	scheduler, err := r.scheduler(copier)
	if err != nil {
		return err
	}

	next := scheduler.Next()
	r.writePlainHeader("weekcopy")
	r.writePlain("Source playlist: %s\n", r.config.Copy.SourcePlaylistID)
	r.writePlain("Schedule: %s (%s)\n", r.config.Schedule.Cron, next.Location())
	r.writePlain("%s\n", ui.RenderNext(next, time.Now().In(next.Location()), copier.TargetNameAt(next)))
	r.writePlain("%s\n", ui.Help("Press Ctrl+C to stop"))

	r.logger.Info("scheduler started", "cron", r.config.Schedule.Cron, "next", next)
	return scheduler.Serve(ctx)
}

// Copy runs one manual copy and prints its progress.
func (r *Runner) Copy(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := r.credentials()
	if err != nil {
		return err
	}

	db, closeJournal, err := r.journal()
	if err != nil {
		return err
	}
	defer closeJournal()

	copier, err := r.copier(mgr, db)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Title("Copying into "+copier.NextTargetName()))

	progress := make(chan tasks.ProgressUpdate, 8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("%s\n", ui.RenderProgress(update))
		}
	}()

	result, err := copier.Run(ctx, progress)
	close(progress)
	wg.Wait()

	r.writePlainln("%s", ui.RenderResult(result, err))
	return err
}
