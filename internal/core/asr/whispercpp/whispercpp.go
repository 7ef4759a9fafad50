//go:build cgo

// Package whispercpp runs Whisper models locally through the whisper.cpp bindings.
package whispercpp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
)

// Config selects the model file and runtime settings.
type Config struct {
	ModelPath string
	// Threads is the number of CPU threads per inference; 0 keeps the library default.
	Threads int
	// Device is informational; whisper.cpp picks the accelerator it was built with.
	Device string
	Logger *slog.Logger
}

// Backend implements asr.Backend using whisper.cpp via CGO.
type Backend struct {
	model     whisper.Model
	modelPath string
	threads   uint
}

// New loads the model at cfg.ModelPath.
func New(cfg Config) (*Backend, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("whisper model loaded",
		"component", "asr",
		"model", cfg.ModelPath,
		"device", cfg.Device,
		"multilingual", model.IsMultilingual(),
	)

	threads := cfg.Threads
	if threads < 0 {
		threads = 0
	}
	return &Backend{
		model:     model,
		modelPath: cfg.ModelPath,
		threads:   uint(threads),
	}, nil
}

func (b *Backend) Name() string {
	return "whisper.cpp"
}

// Transcribe runs one full decode. The whisper context is not reused
// between calls.
func (b *Backend) Transcribe(ctx context.Context, samples []float32, opts asr.Options) ([]asr.Segment, asr.Info, error) {
	wctx, err := b.model.NewContext()
	if err != nil {
		return nil, asr.Info{}, fmt.Errorf("failed to create whisper context: %w", err)
	}

	if b.threads > 0 {
		wctx.SetThreads(b.threads)
	}

	if b.model.IsMultilingual() {
		lang := "auto"
		if opts.Language != nil {
			lang = *opts.Language
		}
		if err := wctx.SetLanguage(lang); err != nil {
			return nil, asr.Info{}, fmt.Errorf("failed to set language %q: %w", lang, err)
		}
	} else if opts.Language != nil && *opts.Language != "en" {
		return nil, asr.Info{}, fmt.Errorf("model %s is English-only, cannot use language %q", b.modelPath, *opts.Language)
	}

	wctx.SetTranslate(opts.Task == asr.TaskTranslate)
	wctx.SetTokenTimestamps(opts.WordTimestamps)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, asr.Info{}, fmt.Errorf("transcription failed: %w", err)
	}

	var segments []asr.Segment
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, asr.Info{}, fmt.Errorf("failed to get segment: %w", err)
		}

		seg := asr.Segment{
			Start: segment.Start.Seconds(),
			End:   segment.End.Seconds(),
			Text:  segment.Text,
		}
		if opts.WordTimestamps {
			seg.Words = asr.MergeTokens(textTokens(wctx, segment.Tokens))
		}
		segments = append(segments, seg)
	}

	info := asr.Info{}
	if opts.Language != nil {
		lang := *opts.Language
		info.Language = &lang
	} else if b.model.IsMultilingual() {
		if lang := wctx.DetectedLanguage(); lang != "" {
			info.Language = &lang
		}
	} else {
		lang := "en"
		info.Language = &lang
	}

	return segments, info, nil
}

// textTokens drops timestamp and control tokens.
func textTokens(wctx whisper.Context, tokens []whisper.Token) []asr.Token {
	out := make([]asr.Token, 0, len(tokens))
	for _, tok := range tokens {
		if !wctx.IsText(tok) {
			continue
		}
		out = append(out, asr.Token{
			Text:        tok.Text,
			Start:       tok.Start.Seconds(),
			End:         tok.End.Seconds(),
			Probability: float64(tok.P),
		})
	}
	return out
}

// Close releases the model resources.
func (b *Backend) Close() error {
	if b.model != nil {
		return b.model.Close()
	}
	return nil
}
