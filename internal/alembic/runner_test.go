package alembic

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// newStubRunner swaps the alembic binary for a shell script so runner
// behavior can be tested without alembic installed.
func newStubRunner(t *testing.T, body string) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub binary requires a POSIX shell")
	}

	project := newScriptProject(t)
	stub := filepath.Join(t.TempDir(), "alembic-stub")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub failed: %v", err)
	}
	return NewRunner(project, stub)
}

func TestRunnerCapturesStdout(t *testing.T) {
	r := newStubRunner(t, `echo "Rev: 1a2b3c4d5e6f (head)"`)

	out, err := r.HistoryVerbose(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !strings.Contains(out, "Rev: 1a2b3c4d5e6f") {
		t.Fatalf("stdout not captured: %q", out)
	}
}

func TestRunnerPassesConfigAndSubcommand(t *testing.T) {
	r := newStubRunner(t, `echo "$@"`)

	out, err := r.Current(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	fields := strings.Fields(out)
	if len(fields) != 3 || fields[0] != "-c" || fields[2] != "current" {
		t.Fatalf("unexpected argv: %q", out)
	}
	if fields[1] != r.project.IniPath {
		t.Fatalf("config path not passed: %q", out)
	}
}

func TestRunnerNonZeroExitIsFailure(t *testing.T) {
	// Partial stdout must not mask the failure.
	r := newStubRunner(t, "echo partial output\necho 'FAILED: no config' >&2\nexit 1")

	out, err := r.Heads(context.Background())
	if err == nil {
		t.Fatalf("expected error on non-zero exit")
	}
	if out != "" {
		t.Fatalf("expected no blob on failure, got %q", out)
	}
	if !strings.Contains(err.Error(), "FAILED: no config") {
		t.Fatalf("stderr diagnostic missing from error: %v", err)
	}
}

func TestRunnerMissingBinary(t *testing.T) {
	project := newScriptProject(t)
	r := NewRunner(project, filepath.Join(t.TempDir(), "does-not-exist"))

	if _, err := r.HistoryVerbose(context.Background()); err == nil {
		t.Fatalf("expected launch failure to surface")
	}
}
