package main

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/spf13/cobra"

	"github.com/travelintel/dealengine/internal/config"
	"github.com/travelintel/dealengine/internal/store"
)

func newMigrateCmd() *cobra.Command {
	var down bool
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the deal store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(down, steps)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back instead of applying migrations")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migration steps to apply (0 means all)")
	return cmd
}

func runMigrate(down bool, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	src, err := iofs.New(store.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, driverDSN(cfg.Store.DSN))
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	if down {
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	} else {
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migration: %w", err)
	}

	fmt.Println("dealengine: migrations applied")
	return nil
}

// driverDSN reuses the store DSN as-is: golang-migrate's postgres driver
// accepts the same postgres:// URL form gorm.Open uses for the same
// database, it just needs the blank-imported driver package registered.
func driverDSN(dsn string) string {
	return dsn
}
