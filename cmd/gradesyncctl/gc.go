package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-lms-gradesync/internal/app"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete expired OAuth states and access tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			states, tokens, err := a.OAuth.SweepExpired(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d oauth states and %d tokens\n", states, tokens)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
