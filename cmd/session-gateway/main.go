package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/openkcm/common-sdk/pkg/utils"
	"github.com/spf13/cobra"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-gateway/cmd/session-gateway/apiserver"
	"github.com/openkcm/session-gateway/cmd/session-gateway/housekeeper"
	"github.com/openkcm/session-gateway/cmd/session-gateway/migrate"
	"github.com/openkcm/session-gateway/cmd/session-gateway/showconfig"
)

var (
	// BuildInfo will be set by the build system
	BuildInfo = "{}"

	skipGracefulShutdown bool
	gracefulShutdown     time.Duration
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Session Gateway Version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		skipGracefulShutdown = true

		value, err := utils.ExtractFromComplexValue(BuildInfo)
		if err != nil {
			return err
		}

		slog.InfoContext(cmd.Context(), value)

		return nil
	},
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session-gateway",
		Short: "Session Gateway",
		Long:  "Session Gateway keeps the login sessions of marketplace clients and gates the routes that need one.",
	}

	cmd.PersistentFlags().DurationVar(&gracefulShutdown, "graceful-shutdown", 1*time.Second, "graceful shutdown")

	configCmd := showconfig.Cmd(BuildInfo)
	configCmd.PostRun = func(*cobra.Command, []string) { skipGracefulShutdown = true }

	cmd.AddCommand(
		versionCmd,
		configCmd,
		apiserver.Cmd(BuildInfo),
		housekeeper.Cmd(BuildInfo),
		migrate.Cmd(BuildInfo),
	)

	return cmd
}

func execute() error {
	ctx, cancelOnSignal := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancelOnSignal()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		slogctx.Error(ctx, "failed to start the application", "error", err)
		_, _ = fmt.Fprintln(os.Stderr, err)

		return err
	}

	if !skipGracefulShutdown {
		_, _ = fmt.Fprintf(os.Stderr, "Graceful shutdown in %s\n", gracefulShutdown)
		time.Sleep(gracefulShutdown)
	}

	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
