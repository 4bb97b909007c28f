package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/config"
	"github.com/scrambleopt/scrambleopt/internal/optimization/catalog"
	"github.com/scrambleopt/scrambleopt/internal/optimization/driver"
	"github.com/scrambleopt/scrambleopt/internal/raster"
	"github.com/scrambleopt/scrambleopt/internal/store"
	"github.com/scrambleopt/scrambleopt/internal/viewer"
)

var (
	runConfigPath string
	gridPath      string
	outPath       string
	saveDir       string
	seedOverride  int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single optimization to completion",
	Long: `Loads a run configuration and an initial grid, runs the configured
solver until it terminates and prints a summary. Interrupting with Ctrl-C
cancels the run and still reports the best state found so far.`,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Run configuration YAML (required)")
	runCmd.Flags().StringVar(&gridPath, "grid", "", "Initial grid file (required)")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the optimized grid to this path")
	runCmd.Flags().StringVar(&saveDir, "save-dir", "", "Persist the run record under this store directory")
	runCmd.Flags().Int64Var(&seedOverride, "seed", -1, "Override the configured random seed (-1 keeps it)")

	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("grid")
	rootCmd.AddCommand(runCmd)
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadRunConfig(runConfigPath)
	if err != nil {
		return err
	}
	if seedOverride >= 0 {
		cfg.Seed = seedOverride
	}

	grid, geo, err := raster.FileSource{}.Load(gridPath)
	if err != nil {
		return err
	}
	logger.Info("grid loaded",
		zap.String("path", gridPath),
		zap.Int("rows", grid.Rows()),
		zap.Int("cols", grid.Cols()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := driver.New(catalog.Default(), driver.WithLogger(logger))
	h, err := d.Start(ctx, cfg, grid)
	if err != nil {
		return err
	}

	res, err := viewer.Pump(ctx, h, viewer.NewLogSink(logger))
	if err != nil {
		// The signal watcher cancels the run through its handle, so a
		// result is still available after ctx ends.
		res, err = h.Result(cmd.Context())
		if err != nil {
			return err
		}
	}

	fmt.Printf("outcome:    %s (%s)\n", res.Outcome, res.Reason)
	fmt.Printf("best value: %g\n", res.BestScore.Value)
	for name, v := range res.BestScore.Components {
		fmt.Printf("  %-12s %g\n", name, v)
	}
	fmt.Printf("iterations: %d (accepted %d)\n", res.Iterations, res.Accepted)
	fmt.Printf("elapsed:    %s\n", res.Elapsed.Round(time.Millisecond))

	if outPath != "" && res.Best != nil {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		if err := raster.Write(f, res.Best, geo); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		logger.Info("optimized grid written", zap.String("path", outPath))
	}

	if saveDir != "" {
		st, err := store.NewFSStore(saveDir, logger)
		if err != nil {
			return err
		}
		rec := store.NewRecord(uuid.New().String(), cfg, res, geo)
		if err := st.Save(rec); err != nil {
			return err
		}
		fmt.Printf("saved:      %s\n", rec.ID)
	}

	if res.Err != nil {
		return res.Err
	}
	return nil
}
