package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, then initializes the configured credential store.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}

	switch config.Credentials.Store {
	case shared.StoreSQLite:
		r.logger.Info("initializing database", "path", config.Database.Path)

		db, err := shared.OpenMigratedDatabase(config.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		r.logger.Infof("setup complete for database: %v", config.Database.Path)
		r.writePlain("✓ Credential database ready at %s\n", shared.ExpandPath(config.Database.Path))
	case shared.StoreFile:
		r.writePlain("✓ Credentials will be stored in %s\n", shared.ExpandPath(config.Credentials.FilePath))
	}

	r.writePlain("Backend: %s\n", config.API.BaseURL)
	r.writePlainln("Next: run 'subfeed auth login' to sign in")
	return nil
}
