package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/app"
	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
	"github.com/noah-isme/sma-lms-gradesync/pkg/logger"
)

var version = "dev"

var (
	logLevel string
	cfg      *config.Config
	logr     *zap.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Printf("gradesyncctl: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gradesyncctl",
	Short: "Operator tooling for LMS grade transfers",
	Long: `gradesyncctl runs database migrations, housekeeping and one-off grade
transfers against the same configuration as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		loaded.Log.Format = "console"

		l, err := logger.New(loaded)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg, logr = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logr != nil {
			_ = logr.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gradesyncctl %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// withApp wires the services for the duration of fn.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(cfg, logr)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck
	return fn(a)
}
