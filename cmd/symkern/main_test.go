package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/njchilds90/symkern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func resetGlobals() {
	verbose = false
	configPath = ""
	ruleFiles = nil
	timeout = 0
	jsonOut = false
	batchJobs = 0
	logger = zap.NewNop()
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetGlobals()
	t.Cleanup(resetGlobals)

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvalFromStdin(t *testing.T) {
	out, err := execute(t, "- [Plus, x, [Times, 2, x]]\n- [Sin, 0]\n", "eval")
	require.NoError(t, err)
	assert.Equal(t, "Plus[x, Times[2, x]] -> Times[3, x]\nSin[0] -> 0\n", out)
}

func TestEvalJSONLines(t *testing.T) {
	out, err := execute(t, "[Cos, Pi]", "eval", "--json")
	require.NoError(t, err)

	var line jsonResult
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.NotEmpty(t, line.ID)
	assert.Empty(t, line.Error)

	in, err := symkern.ParseJSON(line.Input)
	require.NoError(t, err)
	assert.Equal(t, "Cos[Pi]", in.String())
	res, err := symkern.ParseJSON(line.Output)
	require.NoError(t, err)
	assert.Equal(t, "-1", res.String())
}

func TestEvalReportsFailures(t *testing.T) {
	cfg := writeFile(t, "symkern.yaml", "iteration_limit: 5\n")
	rules := writeFile(t, "loop.yaml", "rules:\n  - {lhs: [loop, x_], rhs: [loop, [Plus, x, 1]]}\n")

	out, err := execute(t, "- [loop, 0]\n- [Times, 2, 3]\n", "eval", "--config", cfg, "--rules", rules)
	assert.EqualError(t, err, "1 of 2 expressions failed")
	assert.Contains(t, out, "loop[0] -> ")
	assert.Contains(t, out, "(error: ")
	assert.Contains(t, out, "Times[2, 3] -> 6\n")
}

func TestEvalInputErrors(t *testing.T) {
	_, err := execute(t, "", "eval", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "{a: 1}\n")
	_, err = execute(t, "", "eval", bad)
	assert.ErrorContains(t, err, "bad.yaml")

	_, err = execute(t, "", "eval", "--config", filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestBatchCommand(t *testing.T) {
	path := writeFile(t, "exprs.yaml", "exprs:\n  - [Times, 2, 3]\n  - [Zeta, 2]\n  - [N, [Zeta, 2]]\n")
	out, err := execute(t, "", "batch", "--jobs", "2", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Times[2, 3] -> 6", lines[0])
	assert.Equal(t, "Zeta[2] -> Times[1/6, Power[Pi, 2]]", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "N[Zeta[2]] -> 1.644934066848"), lines[2])
}

func TestZetaCommand(t *testing.T) {
	out, err := execute(t, "", "zeta", "2", "0.5")
	require.NoError(t, err)
	v, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi*math.Pi/2, v, 1e-12)

	_, err = execute(t, "", "zeta", "1", "0.5")
	assert.ErrorContains(t, err, "pole")
	_, err = execute(t, "", "zeta", "two", "1")
	assert.ErrorContains(t, err, "x: ")
	_, err = execute(t, "", "zeta", "2")
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := execute(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "Cosh\t")
	assert.Contains(t, out, "D\t")

	out, err = execute(t, "", "rules", "Zeta")
	require.NoError(t, err)
	assert.Contains(t, out, "Zeta[0] -> -1/2")

	_, err = execute(t, "", "rules", "NoSuchHead")
	assert.EqualError(t, err, "no rules for NoSuchHead")
}

// syncBuffer lets the watcher write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchReevaluatesOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreAnyFunction("os/signal.loop"))
	resetGlobals()

	path := writeFile(t, "watched.yaml", "[Sin, 0]\n")
	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- watchFile(ctx, path, &out, ready) }()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch stopped early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch never armed")
	}
	assert.Contains(t, out.String(), "== watched.yaml (1 expressions)\nSin[0] -> 0\n")

	require.NoError(t, os.WriteFile(path, []byte("- [Cos, 0]\n- [Cos, Pi]\n"), 0o644))
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Cos[Pi] -> -1\n")
	}, 10*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
}
