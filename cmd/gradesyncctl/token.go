package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-lms-gradesync/internal/app"
)

var (
	tokenUserID string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token for a platform user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			user, err := a.Users.FindByID(cmd.Context(), tokenUserID)
			if err != nil {
				return fmt.Errorf("load user %s: %w", tokenUserID, err)
			}
			token, expiresAt, err := a.Auth.IssueToken(user, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			logr.Sugar().Infow("token issued", "user_id", user.ID, "role", user.Role, "expires_at", expiresAt)
			return nil
		})
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(tokenCmd)
}
