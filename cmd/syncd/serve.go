package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syncbridge/syncd/internal/config"
	"github.com/syncbridge/syncd/internal/history"
	"github.com/syncbridge/syncd/internal/migrate"
	"github.com/syncbridge/syncd/internal/server"
	"github.com/syncbridge/syncd/internal/store"
	"github.com/syncbridge/syncd/internal/telemetry"
)

const legacyWatchGroupID = 1

func newServeCmd(cctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the syncd HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cctx)
		},
	}
}

func runServe(ctx context.Context, cctx *cliContext) error {
	cfg := cctx.cfg
	logger := cctx.logger

	dbPath := filepath.Join(cfg.DataDir, "syncd.db")

	es, err := store.Open(ctx, dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening event store: %w", err)
	}
	defer es.Close()

	if err := seedWatchGroups(ctx, es, cfg.SeedWatchGroups, logger); err != nil {
		return err
	}

	if err := migrate.RunOnce(ctx, cfg.DataDir, legacyWatchGroupID, es, logger); err != nil {
		return fmt.Errorf("legacy CSV migration: %w", err)
	}

	events, err := es.ListAllEvents(ctx)
	if err != nil {
		return fmt.Errorf("loading event history: %w", err)
	}

	h := history.New(events)
	metrics := telemetry.NewMetrics()

	srv := server.New(es, h, metrics, cfg.DataDir, logger)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	sampler := telemetry.NewSampler(metrics, filepath.Join(cfg.DataDir, "monitor"), cfg.DataDir, time.Minute, logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return sampler.Run(groupCtx)
	})

	group.Go(func() error {
		return config.WatchFile(groupCtx, cctx.configPath, logger, func(reloaded config.Config) {
			cctx.logLevel.Set(config.ParseLogLevel(reloaded.LogLevel))
		})
	})

	group.Go(func() error {
		return runBackupSweep(groupCtx, cfg.DataDir, logger)
	})

	group.Go(func() error {
		return serveHTTP(groupCtx, httpServer, logger)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func serveHTTP(ctx context.Context, httpServer *http.Server, logger *slog.Logger) error {
	tlsPaths, tlsEnabled := config.ResolveTLS()

	logger.Info("syncd: listening", slog.String("addr", httpServer.Addr), slog.Bool("tls", tlsEnabled))

	var err error
	if tlsEnabled {
		err = httpServer.ListenAndServeTLS(tlsPaths.CertPath, tlsPaths.KeyPath)
	} else {
		err = httpServer.ListenAndServe()
	}

	if err == http.ErrServerClosed {
		return nil
	}

	return err
}

func seedWatchGroups(ctx context.Context, es *store.EventStore, names []string, logger *slog.Logger) error {
	if len(names) == 0 {
		return nil
	}

	existing, err := es.ListWatchGroups(ctx)
	if err != nil {
		return fmt.Errorf("listing watch groups: %w", err)
	}

	if len(existing) > 0 {
		return nil
	}

	for _, name := range names {
		if _, err := es.InsertWatchGroup(ctx, name); err != nil {
			return fmt.Errorf("seeding watch group %q: %w", name, err)
		}

		logger.Info("syncd: seeded watch group", slog.String("name", name))
	}

	return nil
}
