package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/syncbridge/syncd/internal/migrate"
	"github.com/syncbridge/syncd/internal/store"
)

func newMigrateCmd(cctx *cliContext) *cobra.Command {
	var watchGroupID int64

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "import a legacy history.csv into the event store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := cctx.cfg

			es, err := store.Open(ctx, filepath.Join(cfg.DataDir, "syncd.db"), cctx.logger)
			if err != nil {
				return fmt.Errorf("opening event store: %w", err)
			}
			defer es.Close()

			return migrate.RunOnce(ctx, cfg.DataDir, watchGroupID, es, cctx.logger)
		},
	}

	cmd.Flags().Int64Var(&watchGroupID, "watch-group-id", 1, "watch group the imported legacy history is attributed to")

	return cmd
}
