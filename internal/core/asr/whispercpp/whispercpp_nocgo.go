//go:build !cgo

package whispercpp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
)

// ErrUnavailable is returned when the binary was built without CGO.
var ErrUnavailable = errors.New("whisper.cpp backend requires a CGO build; set ASR_ENGINE=openai or rebuild with CGO_ENABLED=1")

type Config struct {
	ModelPath string
	Threads   int
	Device    string
	Logger    *slog.Logger
}

type Backend struct{}

func New(cfg Config) (*Backend, error) {
	return nil, ErrUnavailable
}

func (b *Backend) Name() string { return "whisper.cpp" }

func (b *Backend) Transcribe(ctx context.Context, samples []float32, opts asr.Options) ([]asr.Segment, asr.Info, error) {
	return nil, asr.Info{}, ErrUnavailable
}

func (b *Backend) Close() error { return nil }
