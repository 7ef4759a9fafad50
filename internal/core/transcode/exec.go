package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/guiyumin/sentinel-whisper-server/internal/metrics"
)

// RunFunc runs the executable and returns its stderr and exit code.
type RunFunc func(ctx context.Context, path string, args []string) (stderr string, exitCode int, err error)

// Exec runs an ffmpeg executable as a subprocess.
type Exec struct {
	path   string
	run    RunFunc
	logger *slog.Logger
}

// ExecOption configures an Exec.
type ExecOption func(*Exec)

// WithRunner replaces the subprocess runner (for testing).
func WithRunner(fn RunFunc) ExecOption {
	return func(e *Exec) { e.run = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ExecOption {
	return func(e *Exec) { e.logger = logger }
}

// NewExec creates an Exec for the executable at path.
func NewExec(path string, opts ...ExecOption) *Exec {
	e := &Exec{
		path:   path,
		run:    defaultRun,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "ffmpeg")
	return e
}

func (e *Exec) Name() string {
	return "exec"
}

// Transcode runs ffmpeg once. Failures are not retried.
func (e *Exec) Transcode(ctx context.Context, inputPath, outputPath string, maxSeconds *int) error {
	args := Args(inputPath, outputPath, maxSeconds)
	e.logger.Debug("running ffmpeg", "path", e.path, "args", args)

	start := time.Now()
	stderr, code, err := e.run(ctx, e.path, args)
	if err == nil && code != 0 {
		err = fmt.Errorf("exit status %d", code)
	}
	metrics.TranscodeDuration.WithLabelValues(e.Name(), metrics.Result(err)).Observe(time.Since(start).Seconds())

	if err != nil {
		e.logger.Warn("ffmpeg failed", "exit_code", code, "error", err)
		return &Error{ExitCode: code, Output: stderr, Err: err}
	}
	return nil
}

func defaultRun(ctx context.Context, path string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	// ffmpeg writes its diagnostics to stderr
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stderr.String(), 0, nil
	}

	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return stderr.String(), code, err
}
