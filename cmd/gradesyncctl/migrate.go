package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-lms-gradesync/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply the LMS integration schema migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{database.MigrateUp, database.MigrateDown, database.MigrateStatus},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := database.MigrateUp
		if len(args) == 1 {
			command = args[0]
		}

		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close() //nolint:errcheck

		if err := database.RunMigrations(db.DB, command); err != nil {
			return err
		}
		logr.Sugar().Infow("migrations finished", "command", command)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
