// Package transcode normalizes arbitrary media into 16 kHz mono PCM16 WAV with ffmpeg.
package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// Kinds accepted by Resolve.
const (
	KindAuto = "auto"
	KindExec = "exec"
	KindWASM = "wasm"
)

// Transcoder converts inputPath into a WAV at outputPath. A non-nil
// maxSeconds truncates the output to that duration.
type Transcoder interface {
	Name() string
	Transcode(ctx context.Context, inputPath, outputPath string, maxSeconds *int) error
}

// Args builds the ffmpeg argument list. The output contract is fixed.
func Args(inputPath, outputPath string, maxSeconds *int) []string {
	args := []string{"-y", "-i", inputPath}
	if maxSeconds != nil {
		args = append(args, "-t", strconv.Itoa(*maxSeconds))
	}
	return append(args,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	)
}

// Resolve picks a transcoder. With KindAuto the ffmpeg executable is used
// when it can be found, otherwise the embedded WebAssembly build.
func Resolve(kind, ffmpegPath string, logger *slog.Logger) (Transcoder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}

	switch kind {
	case KindExec:
		return NewExec(ffmpegPath, WithLogger(logger)), nil
	case KindWASM:
		return NewWASM(logger), nil
	case KindAuto, "":
		if resolved, err := exec.LookPath(ffmpegPath); err == nil {
			return NewExec(resolved, WithLogger(logger)), nil
		}
		logger.Info("ffmpeg executable not found, using embedded ffmpeg", "component", "ffmpeg", "path", ffmpegPath)
		return NewWASM(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTranscoder, kind)
	}
}
