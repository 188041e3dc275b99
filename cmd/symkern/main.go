// Command symkern rewrites FullForm expressions read from YAML files.
//
// Usage:
//
//	symkern eval exprs.yaml
//	symkern batch --jobs 8 exprs.yaml
//	symkern watch exprs.yaml
//	symkern zeta 2 0.5
//	symkern rules Cosh
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/njchilds90/symkern"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	ruleFiles  []string
	timeout    time.Duration
	jsonOut    bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "symkern",
	Short: "Symbolic evaluation kernel",
	Long: `symkern reduces expressions to canonical form with rewrite rules,
attribute normalization and numeric evaluation.

Expressions are written in FullForm as YAML sequences:

  [Plus, x, [Times, 2, x]]
  [Apart, [Power, [Plus, [Power, x, 2], -3, [Times, 2, x]], -1], x]
  [N, [Cosh, 1/3]]`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringSliceVarP(&ruleFiles, "rules", "r", nil, "Extra YAML rule files")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-expression timeout (0 keeps the configured value)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Write results as JSON lines")

	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(zetaCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger logs to stderr, in console form on a terminal and JSON
// otherwise. Only warnings are shown unless verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	var config zap.Config
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

// newSession applies the global flags on top of the configuration file.
func newSession() (*symkern.Session, error) {
	cfg := symkern.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = symkern.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	cfg.RuleFiles = append(cfg.RuleFiles, ruleFiles...)
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return symkern.NewSession(symkern.WithConfig(cfg), symkern.WithLogger(logger))
}
