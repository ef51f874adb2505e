package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-lms-gradesync/internal/app"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/pkg/export"
)

var (
	resultUnitID  string
	resultFile    string
	resultVerbose bool
)

var resultCmd = &cobra.Command{
	Use:   "result",
	Short: "Summarise a grade transfer result",
	Long: `Reads the stored result of --unit, or a downloaded CSV given with --file,
and prints the number of rows per status.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (resultUnitID == "") == (resultFile == "") {
			return fmt.Errorf("exactly one of --unit or --file is required")
		}
		if resultFile != "" {
			data, err := os.ReadFile(resultFile)
			if err != nil {
				return err
			}
			return summarise(cmd, data)
		}
		return withApp(func(a *app.App) error {
			data, err := a.Jobs.Result(cmd.Context(), resultUnitID)
			if err != nil {
				return err
			}
			return summarise(cmd, data)
		})
	},
}

func summarise(cmd *cobra.Command, data []byte) error {
	dataset, err := export.NewCSVExporter().Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse result: %w", err)
	}
	counts := make(map[models.SyncStatus]int)
	for _, row := range dataset.Rows {
		counts[models.SyncStatus(row["Status"])]++
		if resultVerbose {
			writeRow(cmd.OutOrStdout(), row)
		}
	}
	printCounts(cmd, counts)
	return nil
}

func writeRow(w io.Writer, row map[string]string) {
	fmt.Fprintf(w, "%-20s %s\n", row["Status"], row["Message"])
}

func init() {
	resultCmd.Flags().StringVar(&resultUnitID, "unit", "", "unit id whose stored result is read")
	resultCmd.Flags().StringVar(&resultFile, "file", "", "path of a result CSV")
	resultCmd.Flags().BoolVarP(&resultVerbose, "verbose", "v", false, "print every row")
	rootCmd.AddCommand(resultCmd)
}
