package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"slot-history-backend/config"
	"slot-history-backend/internal/api"
	"slot-history-backend/internal/db"
	"slot-history-backend/internal/export"
	"slot-history-backend/internal/ingest"
	"slot-history-backend/internal/logging"
	"slot-history-backend/internal/metrics"
	"slot-history-backend/internal/mw"
	"slot-history-backend/internal/store"
)

func main() {
	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml" // Default path for local development
	}

	var configPath string
	rootCmd := &cobra.Command{
		Use:          "slothistd",
		Short:        "Appointment slot booking history",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "path to the configuration file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(computeCmd(&configPath))
	rootCmd.AddCommand(exportCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles what every command needs.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   store.Store
	metrics *metrics.Metrics
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	logger := logging.New(cfg.Log)
	logger.Info().Str("path", configPath).Msg("configuration loaded successfully")

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized successfully")

	return &app{
		cfg:     cfg,
		log:     logger,
		store:   store.NewGormStore(gormDB, cfg.Timezone.Zones.Local),
		metrics: metrics.New(),
	}, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Ingest snapshot files periodically and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			return runServer(a)
		},
	}
}

func runServer(a *app) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.log.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	responseCache := mw.NewResponseCache(time.Duration(a.cfg.Server.CacheTTLSeconds) * time.Second)

	ingestSvc := ingest.NewService(a.cfg, a.store, a.metrics, a.log)
	ingestSvc.OnRecompute(responseCache.Flush)
	go ingestSvc.Run(ctx)

	handler := api.NewHandler(a.store, a.log, a.cfg.Timezone.Zones.Local)
	router := api.NewRouter(a.cfg.Server, handler, a.metrics, responseCache, a.log)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info().Int("port", a.cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		a.log.Info().Msg("shutdown signal received, stopping services")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	a.log.Info().Msg("server gracefully stopped")
	return nil
}

func computeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "compute",
		Short: "Ingest snapshot files and recompute the derived tables once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			run, err := ingest.NewService(a.cfg, a.store, a.metrics, a.log).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d grid entries, %d activity events, %d suppressed artifacts\n",
				run.ID, run.GridEntries, run.ActivityEvents, run.SuppressedArtifacts)
			return nil
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored derived tables as CSV, XLSX and PDF files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.Export.Dir
			}
			delimiter, _ := utf8.DecodeRuneInString(a.cfg.Export.Delimiter)

			res, err := a.store.Tables(cmd.Context())
			if err != nil {
				return err
			}
			files, err := export.WriteAll(out, res, delimiter, time.Now().In(a.cfg.Timezone.Zones.Local))
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			a.log.Info().Str("dir", out).Int("files", len(files)).Msg("export finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (defaults to export.dir)")
	return cmd
}
