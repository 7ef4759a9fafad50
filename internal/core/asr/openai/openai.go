// Package openai transcribes through an OpenAI-compatible Whisper API.
package openai

import (
	"context"
	"fmt"
	"os"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/audio"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "whisper-1"

// Config holds the API credentials and model.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// TempDir receives the WAV uploaded for each call; empty means the system default.
	TempDir string
}

// Backend implements asr.Backend against the audio transcription API.
type Backend struct {
	client  *gopenai.Client
	model   string
	tempDir string
}

// New creates a Backend.
func New(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided")
	}

	clientConfig := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Backend{
		client:  gopenai.NewClientWithConfig(clientConfig),
		model:   model,
		tempDir: cfg.TempDir,
	}, nil
}

func (b *Backend) Name() string {
	return "openai"
}

func (b *Backend) Close() error {
	return nil
}

// Transcribe encodes the samples as WAV and uploads them.
func (b *Backend) Transcribe(ctx context.Context, samples []float32, opts asr.Options) ([]asr.Segment, asr.Info, error) {
	tmp, err := os.CreateTemp(b.tempDir, "sw-openai-*.wav")
	if err != nil {
		return nil, asr.Info{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := audio.WriteWAV(tmpPath, samples, audio.SampleRate); err != nil {
		return nil, asr.Info{}, fmt.Errorf("failed to encode audio: %w", err)
	}

	req := gopenai.AudioRequest{
		Model:    b.model,
		FilePath: tmpPath,
		Format:   gopenai.AudioResponseFormatVerboseJSON,
	}
	if opts.WordTimestamps {
		req.TimestampGranularities = []gopenai.TranscriptionTimestampGranularity{
			gopenai.TranscriptionTimestampGranularityWord,
			gopenai.TranscriptionTimestampGranularitySegment,
		}
	}

	var resp gopenai.AudioResponse
	if opts.Task == asr.TaskTranslate {
		resp, err = b.client.CreateTranslation(ctx, req)
	} else {
		if opts.Language != nil {
			req.Language = *opts.Language
		}
		resp, err = b.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return nil, asr.Info{}, fmt.Errorf("transcription API error: %w", err)
	}

	return convert(resp, opts)
}

func convert(resp gopenai.AudioResponse, opts asr.Options) ([]asr.Segment, asr.Info, error) {
	segments := make([]asr.Segment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, asr.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}

	if opts.WordTimestamps && len(segments) > 0 {
		words := make([]asr.Word, 0, len(resp.Words))
		for _, w := range resp.Words {
			words = append(words, asr.Word{Start: w.Start, End: w.End, Text: " " + w.Word})
		}
		assignWords(segments, words)
	}

	info := asr.Info{}
	if opts.Language != nil {
		lang := *opts.Language
		info.Language = &lang
	} else if resp.Language != "" {
		lang := asr.LanguageCode(resp.Language)
		info.Language = &lang
	}
	return segments, info, nil
}

// assignWords attaches each word to the segment it starts in. Words are
// expected in time order; anything after the last segment start goes to
// the last segment.
func assignWords(segments []asr.Segment, words []asr.Word) {
	i := 0
	for _, w := range words {
		for i < len(segments)-1 && w.Start >= segments[i+1].Start {
			i++
		}
		segments[i].Words = append(segments[i].Words, w)
	}
}
