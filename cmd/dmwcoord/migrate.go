package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/persistence"
	"github.com/cuemby/dmwcoord/pkg/schema"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Align the database schema and exit",
	Long:  "migrate runs the schema guard's boot-time alignment pass against the configured database without starting the coordination engine.",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()
	persist, err := persistence.Open(ctx, persistence.Config{
		DSN:                   cfg.DatabaseDSN,
		MaxOpenConns:          cfg.MaxOpenConns,
		MaxIdleConns:          cfg.MaxIdleConns,
		ConnMaxLifetime:       cfg.ConnMaxLifetime,
		AdvisoryLockNamespace: cfg.AdvisoryLockNamespace,
		ConnectRetries:        cfg.ConnectRetries,
	})
	if err != nil {
		return fmt.Errorf("migrate: open persistence: %w", err)
	}
	defer persist.Close()

	guard := schema.New(persist.DB())
	changes, err := guard.EnsureRequiredSchema(ctx)
	if err != nil {
		return fmt.Errorf("migrate: align schema: %w", err)
	}

	if len(changes) == 0 {
		fmt.Println("schema already aligned, no changes applied")
		return nil
	}
	fmt.Printf("applied %d schema change(s):\n", len(changes))
	for _, c := range changes {
		fmt.Printf("  - %s\n", c)
	}
	return nil
}
