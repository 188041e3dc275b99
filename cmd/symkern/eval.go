package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/njchilds90/symkern"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evalCmd = &cobra.Command{
	Use:   "eval [file...]",
	Short: "Rewrite the expressions in YAML files (stdin when none)",
	Long: `Reads expressions from each file, or from stdin when no file is
given, and rewrites them one after the other on a single session.

A file holds one expression, a sequence of expressions, or a mapping with
an exprs key.`,
	RunE: runEval,
}

var batchJobs int

var batchCmd = &cobra.Command{
	Use:   "batch [file...]",
	Short: "Rewrite the expressions in YAML files concurrently",
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", 0, "Concurrent rewrites (default GOMAXPROCS)")
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runEval(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	exprs, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	results := make([]symkern.Result, len(exprs))
	for i, e := range exprs {
		start := time.Now()
		out, err := s.Rewrite(ctx, e)
		results[i] = symkern.Result{ID: uuid.NewString(), Input: e, Output: out, Err: err, Elapsed: time.Since(start)}
	}
	return report(cmd.OutOrStdout(), results)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	exprs, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	s, err := newSession()
	if err != nil {
		return err
	}
	logger.Info("Starting batch", zap.Int("exprs", len(exprs)), zap.Int("jobs", batchJobs))
	return report(cmd.OutOrStdout(), s.Batch(ctx, exprs, batchJobs))
}

// readInputs decodes every file in order, or stdin when files is empty.
func readInputs(stdin io.Reader, files []string) ([]symkern.Expr, error) {
	if len(files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return symkern.DecodeYAMLStream(data)
	}
	var all []symkern.Expr
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		exprs, err := symkern.DecodeYAMLStream(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		all = append(all, exprs...)
	}
	return all, nil
}

type jsonResult struct {
	ID      string          `json:"id"`
	Input   json.RawMessage `json:"input"`
	Output  json.RawMessage `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
	Elapsed string          `json:"elapsed"`
}

// report prints one line per result and fails when any result did.
func report(w io.Writer, results []symkern.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if err := writeResult(w, r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d expressions failed", failed, len(results))
	}
	return nil
}

func writeResult(w io.Writer, r symkern.Result) error {
	if !jsonOut {
		if r.Err != nil {
			_, err := fmt.Fprintf(w, "%s -> %v (error: %v)\n", r.Input, r.Output, r.Err)
			return err
		}
		_, err := fmt.Fprintf(w, "%s -> %s\n", r.Input, r.Output)
		return err
	}
	jr := jsonResult{ID: r.ID, Elapsed: r.Elapsed.String()}
	in, err := symkern.ToJSON(r.Input)
	if err != nil {
		return err
	}
	jr.Input = json.RawMessage(in)
	if r.Output != nil {
		out, err := symkern.ToJSON(r.Output)
		if err != nil {
			return err
		}
		jr.Output = json.RawMessage(out)
	}
	if r.Err != nil {
		jr.Error = r.Err.Error()
	}
	return json.NewEncoder(w).Encode(jr)
}
