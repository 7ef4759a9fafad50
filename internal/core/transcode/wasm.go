package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"codeberg.org/gruf/go-ffmpreg/ffmpreg"
	"codeberg.org/gruf/go-ffmpreg/wasm"
	"github.com/tetratelabs/wazero"

	"github.com/guiyumin/sentinel-whisper-server/internal/metrics"
)

// WASM runs ffmpeg compiled to WebAssembly inside the process.
// The input and output directories are mounted into the module at the same paths.
type WASM struct {
	logger *slog.Logger
}

// NewWASM creates a WASM transcoder.
func NewWASM(logger *slog.Logger) *WASM {
	if logger == nil {
		logger = slog.Default()
	}
	return &WASM{logger: logger.With("component", "ffmpeg")}
}

func (w *WASM) Name() string {
	return "wasm"
}

func (w *WASM) Transcode(ctx context.Context, inputPath, outputPath string, maxSeconds *int) error {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return err
	}
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return err
	}
	inputDir := filepath.Dir(absInput)
	outputDir := filepath.Dir(absOutput)

	var stderr bytes.Buffer
	args := wasm.Args{
		Stderr: &stderr,
		Stdout: io.Discard,
		Args:   Args(absInput, absOutput, maxSeconds),
		Config: func(cfg wazero.ModuleConfig) wazero.ModuleConfig {
			fsCfg := wazero.NewFSConfig().WithDirMount(inputDir, inputDir)
			if outputDir != inputDir {
				fsCfg = fsCfg.WithDirMount(outputDir, outputDir)
			}
			return cfg.WithFSConfig(fsCfg)
		},
	}

	start := time.Now()
	rc, err := ffmpreg.Ffmpeg(ctx, args)
	if err == nil && rc != 0 {
		err = fmt.Errorf("ffmpeg exited with code %d", rc)
	}
	metrics.TranscodeDuration.WithLabelValues(w.Name(), metrics.Result(err)).Observe(time.Since(start).Seconds())

	if err != nil {
		w.logger.Warn("embedded ffmpeg failed", "exit_code", rc, "error", err)
		return &Error{ExitCode: int(rc), Output: stderr.String(), Err: err}
	}
	return nil
}
