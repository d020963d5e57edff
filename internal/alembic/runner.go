package alembic

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultCommandTimeout = 30 * time.Second

// Source produces the raw CLI text blobs the revision graph is built
// from. Runner is the real implementation; tests substitute fixtures.
type Source interface {
	HistoryVerbose(ctx context.Context) (string, error)
	Current(ctx context.Context) (string, error)
	Heads(ctx context.Context) (string, error)
}

// Runner invokes the alembic CLI for a project and captures its output.
// Each call spawns its own process, so a Runner is safe for concurrent
// use, though callers are expected to serialize refreshes themselves.
type Runner struct {
	binary  string
	project *Project
	timeout time.Duration
}

// NewRunner creates a Runner for the given project. binary is the
// alembic executable name or path; empty means "alembic" from PATH.
func NewRunner(project *Project, binary string) *Runner {
	if binary == "" {
		binary = "alembic"
	}
	return &Runner{
		binary:  binary,
		project: project,
		timeout: defaultCommandTimeout,
	}
}

// HistoryVerbose returns the output of `alembic history --verbose`.
func (r *Runner) HistoryVerbose(ctx context.Context) (string, error) {
	return r.run(ctx, "history", "--verbose")
}

// Current returns the output of `alembic current`.
func (r *Runner) Current(ctx context.Context) (string, error) {
	return r.run(ctx, "current")
}

// Heads returns the output of `alembic heads`.
func (r *Runner) Heads(ctx context.Context) (string, error) {
	return r.run(ctx, "heads")
}

// Upgrade migrates the database up to the given revision.
func (r *Runner) Upgrade(ctx context.Context, revision string) error {
	_, err := r.run(ctx, "upgrade", revision)
	return err
}

// Downgrade migrates the database down to the given revision. This is
// destructive; confirmation is the caller's responsibility.
func (r *Runner) Downgrade(ctx context.Context, revision string) error {
	_, err := r.run(ctx, "downgrade", revision)
	return err
}

// Stamp marks the database as being at the given revision without
// running any migration.
func (r *Runner) Stamp(ctx context.Context, revision string) error {
	_, err := r.run(ctx, "stamp", revision)
	return err
}

// run executes one alembic command and returns its captured stdout.
// A non-zero exit is always an error, even when stdout was produced;
// the error carries whatever diagnostic alembic wrote to stderr.
func (r *Runner) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	full := append([]string{"-c", r.project.IniPath}, args...)
	cmd := exec.CommandContext(ctx, r.binary, full...)
	cmd.Dir = r.project.Root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if diag := strings.TrimSpace(stderr.String()); diag != "" {
			return "", fmt.Errorf("alembic %s: %w: %s", args[0], err, diag)
		}
		return "", fmt.Errorf("alembic %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
