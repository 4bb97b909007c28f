package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/config"
	"github.com/scrambleopt/scrambleopt/internal/logging"
	"github.com/scrambleopt/scrambleopt/internal/metrics"
	"github.com/scrambleopt/scrambleopt/internal/optimization/catalog"
	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
	"github.com/scrambleopt/scrambleopt/internal/server"
	"github.com/scrambleopt/scrambleopt/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the optimization HTTP service",
	Long: `Starts the HTTP API for managing optimization runs. Service
configuration comes from environment variables (HTTP_PORT, LOG_LEVEL,
STORE_DIR, RUNS_MAX_CONCURRENT and friends).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// The service logger follows the environment config, not the CLI flags.
	log, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer log.Sync()

	st, err := store.NewFSStore(cfg.Store.Dir, log)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}

	d := driver.New(catalog.Default(),
		driver.WithLogger(log),
		driver.WithObserver(metrics.New(prometheus.DefaultRegisterer)),
	)
	srv := server.NewServer(cfg, log, d, st)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	r.Use(logging.Recovery(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
