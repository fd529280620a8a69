package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/jobautomate-backend/internal/db"
	"github.com/ignatzorin/jobautomate-backend/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить SQL миграции и выйти",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		return err
	}
	defer conn.Close()

	applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsPath)
	if err != nil {
		return fmt.Errorf("ошибка миграций: %w", err)
	}

	logger.WithComponent("migrate").WithField("applied", applied).Infof("применено миграций: %d", len(applied))
	return nil
}
