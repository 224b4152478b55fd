package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/desertthunder/weekcopy/internal/ui"
	"github.com/urfave/cli/v3"
)

// Setup writes the config template when missing and migrates the run journal when one is configured.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
	} else if errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		config.ApplyEnv(os.LookupEnv)
		r.config = config
		r.writePlain("%s\n", ui.OK("✓ Created "+configPath))
	} else {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	if r.config.Database.Enabled() {
		r.logger.Info("initializing run journal", "path", r.config.Database.Path)
		db, closeJournal, err := r.journal()
		if err != nil {
			return err
		}
		defer closeJournal()

		versions, err := shared.AppliedVersions(db)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", ui.OK(fmt.Sprintf("✓ Run journal ready at %s (%d migrations)", r.config.Database.Path, len(versions))))
	} else {
		r.writePlain("%s\n", ui.Help("Run journal disabled (database.path is empty)"))
	}

	if err := r.config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set %s, %s, %s and %s in %s or .env\n",
			shared.EnvClientID, shared.EnvClientSecret, shared.EnvSourcePlaylistID, shared.EnvUserID, configPath)
		r.writePlain("2. Run 'weekcopy auth' to authorize with Spotify\n")
		r.writePlain("3. Run 'weekcopy serve' to start the weekly copy\n")
		r.logger.Debug("configuration incomplete", "error", err)
	}
	return nil
}
