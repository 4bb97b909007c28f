package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scrambleopt/scrambleopt/internal/logging"
)

var (
	logLevel  string
	logFormat string
	logOutput string
	logger    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "scrambleopt",
	Short: "Iterative stochastic optimization over grid states",
	Long: `ScrambleOpt explores grid-shaped search spaces with perturbation-based
solvers (hill climbing, simulated annealing, tabu search), either as a
one-shot CLI run or as a long-running HTTP service.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(logging.Config{
			Level:  logLevel,
			Format: logFormat,
			Output: logOutput,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "console", "Log format (json, console)")
	pf.StringVar(&logOutput, "log-output", "stderr", "Log output (stdout, stderr, or a file path)")
}
