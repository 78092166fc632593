package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/persistence"
	"github.com/cuemby/dmwcoord/pkg/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write one full snapshot of the database to BACKUP_DIR and exit",
	RunE:  runBackupOnce,
}

func runBackupOnce(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("backup: open persistence: %w", err)
	}
	defer persist.Close()

	s := store.New()
	if err := persist.Load(ctx, s); err != nil {
		return fmt.Errorf("backup: load snapshot: %w", err)
	}

	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("backup: mkdir %s: %w", cfg.BackupDir, err)
	}
	final := filepath.Join(cfg.BackupDir, fmt.Sprintf("dmw-backup-%s.sql", time.Now().UTC().Format("20060102T150405Z")))
	tmp := final + "." + uuid.NewString() + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", tmp, err)
	}
	if err := persist.Backup(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("backup: write: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("backup: close: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("backup: rename into place: %w", err)
	}

	fmt.Printf("wrote %s\n", final)
	return nil
}
