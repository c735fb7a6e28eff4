// Command syncd runs the multi-client file-synchronization server: it
// durably logs every upload/delete, serves the reconciliation and
// transfer endpoints under /sys, and exposes an admin JSON API under
// /api.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/syncbridge/syncd/internal/config"
)

// cliContext carries the flags and loaded config every subcommand needs,
// assembled once in PersistentPreRunE.
type cliContext struct {
	cfg        config.Config
	logger     *slog.Logger
	logLevel   *slog.LevelVar
	configPath string
}

// newLogHandler picks a human-readable text handler for an interactive
// terminal and a JSON handler otherwise (systemd, a log shipper, a pipe),
// matching the teacher's TTY-aware output choice. level is a LevelVar
// rather than a fixed Level so serve can lower or raise verbosity on a
// config reload without restarting the process.
func newLogHandler(level *slog.LevelVar) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		return slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.NewJSONHandler(os.Stdout, opts)
}

func newRootCmd() *cobra.Command {
	cctx := &cliContext{}

	root := &cobra.Command{
		Use:   "syncd",
		Short: "syncd is the server half of a multi-client file synchronization system",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cctx.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cctx.cfg = cfg
			cctx.logLevel = &slog.LevelVar{}
			cctx.logLevel.Set(config.ParseLogLevel(cfg.LogLevel))
			cctx.logger = slog.New(newLogHandler(cctx.logLevel))

			return nil
		},
	}

	root.PersistentFlags().StringVar(&cctx.configPath, "config", "syncd.toml", "path to the TOML config file")

	root.AddCommand(newServeCmd(cctx))
	root.AddCommand(newMigrateCmd(cctx))
	root.AddCommand(newVersionCmd())

	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "syncd:", err)
		os.Exit(1)
	}
}
