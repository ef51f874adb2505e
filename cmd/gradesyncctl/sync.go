package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-lms-gradesync/internal/app"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
)

var (
	syncUnitID string
	syncUserID string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a grade transfer for a unit in the foreground",
	Long: `Runs the same transfer the API queues, using the LMS token of --user.
The unit is marked running for the duration, so API triggers are refused
meanwhile. The result is stored and mailed exactly as for a queued run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if _, err := a.Jobs.Claim(cmd.Context(), syncUnitID); err != nil {
				return fmt.Errorf("claim unit %s: %w", syncUnitID, err)
			}

			report, err := a.Worker.Process(cmd.Context(), syncUnitID, syncUserID)
			if err != nil {
				return err
			}
			printCounts(cmd, report.Counts())
			return nil
		})
	},
}

func printCounts(cmd *cobra.Command, counts map[models.SyncStatus]int) {
	for _, status := range []models.SyncStatus{
		models.SyncStatusSuccess,
		models.SyncStatusFailed,
		models.SyncStatusSkipped,
		models.SyncStatusIgnored,
		models.SyncStatusNotFoundInInternal,
		models.SyncStatusNotFoundInExternal,
	} {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", status, counts[status])
	}
}

func init() {
	syncCmd.Flags().StringVar(&syncUnitID, "unit", "", "unit id")
	syncCmd.Flags().StringVar(&syncUserID, "user", "", "id of the user whose LMS token is used")
	_ = syncCmd.MarkFlagRequired("unit")
	_ = syncCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(syncCmd)
}
