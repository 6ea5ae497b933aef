package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// ---------------------------------------------------------------------------
// Executor - testable FFmpeg execution with dependency injection
// ---------------------------------------------------------------------------

// runFn is the function type for running a command with piped stdio.
type runFn func(ctx context.Context, path string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)

// runOutputFn is the function type for running a command and capturing output.
type runOutputFn func(ctx context.Context, path string, args []string) (string, error)

// Executor runs FFmpeg commands with injectable dependencies.
// It is safe for concurrent use; every call starts its own process.
type Executor struct {
	run       runFn
	runOutput runOutputFn
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithRun sets a custom run function (for testing).
func WithRun(fn runFn) ExecutorOption {
	return func(e *Executor) { e.run = fn }
}

// WithRunOutput sets a custom runOutput function (for testing).
func WithRunOutput(fn runOutputFn) ExecutorOption {
	return func(e *Executor) { e.runOutput = fn }
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		run:       defaultRun,
		runOutput: defaultRunOutput,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes FFmpeg, feeding stdin (may be nil) and capturing stdout and
// stderr separately. It blocks until the process exits. A non-nil error
// means the process could not start, exited non-zero, or was killed because
// ctx was canceled; stderr is returned in every case.
func (e *Executor) Run(ctx context.Context, ffmpegPath string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	return e.run(ctx, ffmpegPath, args, stdin)
}

// RunOutput executes FFmpeg and captures everything it prints, stdout first.
// Informational invocations such as -version write to stdout while
// diagnostics go to stderr.
func (e *Executor) RunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	return e.runOutput(ctx, ffmpegPath, args)
}

// defaultRun is the production implementation of Run.
func defaultRun(ctx context.Context, ffmpegPath string, args []string, stdin io.Reader) ([]byte, []byte, error) {
	// #nosec G204 -- path comes from configuration, args are built by this module
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// defaultRunOutput is the production implementation.
// Returns output even when the command fails, since FFmpeg often returns
// non-zero exit codes for informational invocations.
func defaultRunOutput(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	stdout, stderr, err := defaultRun(ctx, ffmpegPath, args, nil)
	return string(stdout) + string(stderr), err
}
