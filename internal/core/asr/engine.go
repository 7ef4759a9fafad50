package asr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/audio"
	"github.com/guiyumin/sentinel-whisper-server/internal/metrics"
)

// Backend runs inference on 16 kHz mono samples. Implementations do not
// need to be safe for concurrent use; the Engine serializes calls.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, samples []float32, opts Options) ([]Segment, Info, error)
	Close() error
}

// Factory builds the backend from the configuration captured at startup.
type Factory func(ctx context.Context) (Backend, error)

type loadedBackend struct {
	backend Backend
}

// Engine lazily loads a single backend and serializes inference through it.
type Engine struct {
	factory Factory
	decode  func(path string) ([]float32, error)
	logger  *slog.Logger

	mu     sync.Mutex
	loaded atomic.Pointer[loadedBackend]
	builds singleflight.Group

	// one inference at a time
	sem *semaphore.Weighted
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDecoder replaces the file decoder used by TranscribeFile.
func WithDecoder(fn func(path string) ([]float32, error)) EngineOption {
	return func(e *Engine) { e.decode = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine. The backend is not built until first use.
func NewEngine(factory Factory, opts ...EngineOption) *Engine {
	e := &Engine{
		factory: factory,
		decode:  audio.DecodeFile,
		logger:  slog.Default(),
		sem:     semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "asr")
	return e
}

// Initialize returns the shared backend, building it on the first call.
// A failed build is not remembered, so a later call tries again. The build
// is detached from ctx: a caller that gives up stops waiting, but the build
// carries on for the callers behind it.
func (e *Engine) Initialize(ctx context.Context) (Backend, error) {
	if l := e.loaded.Load(); l != nil {
		return l.backend, nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := e.builds.DoChan("backend", func() (any, error) {
		return e.build(buildCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Backend), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) build(ctx context.Context) (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l := e.loaded.Load(); l != nil {
		return l.backend, nil
	}

	start := time.Now()
	backend, err := e.factory(ctx)
	if err != nil {
		e.logger.Error("failed to initialize engine", "error", err)
		return nil, fmt.Errorf("%w: initialize: %w", ErrEngineFailure, err)
	}

	metrics.EngineInitializations.Inc()
	e.loaded.Store(&loadedBackend{backend: backend})
	e.logger.Info("engine initialized", "backend", backend.Name(), "took", time.Since(start).String())
	return backend, nil
}

// Ready reports whether the backend has been built.
func (e *Engine) Ready() bool {
	return e.loaded.Load() != nil
}

// TranscribeFile decodes a WAV, MP3 or FLAC file and transcribes it.
func (e *Engine) TranscribeFile(ctx context.Context, path string, opts Options) ([]Segment, Info, error) {
	samples, err := e.decode(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}
	return e.TranscribeSamples(ctx, samples, opts)
}

// TranscribeSamples transcribes 16 kHz mono samples. Waiting for the engine
// honours ctx; once inference starts it runs to completion.
func (e *Engine) TranscribeSamples(ctx context.Context, samples []float32, opts Options) ([]Segment, Info, error) {
	backend, err := e.Initialize(ctx)
	if err != nil {
		return nil, Info{}, err
	}

	if opts.Task == "" {
		opts.Task = TaskTranscribe
	}
	if opts.VADFilter {
		samples = audio.GateSilence(samples, audio.SampleRate)
	}

	waitStart := time.Now()
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, Info{}, err
	}
	metrics.InferenceQueueWait.Observe(time.Since(waitStart).Seconds())

	// Close may have released the backend while this call was queued
	if l := e.loaded.Load(); l == nil || l.backend != backend {
		e.sem.Release(1)
		return nil, Info{}, fmt.Errorf("%w: engine closed", ErrEngineFailure)
	}

	start := time.Now()
	segments, info, err := backend.Transcribe(context.WithoutCancel(ctx), samples, opts)
	e.sem.Release(1)
	metrics.InferenceDuration.WithLabelValues(backend.Name(), metrics.Result(err)).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, Info{}, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}

	for i := range segments {
		segments[i].ID = i
	}
	if info.Language == nil && opts.Language != nil {
		lang := *opts.Language
		info.Language = &lang
	}
	return segments, info, nil
}

// Close releases the backend if it was built. It waits for an in-flight
// inference to finish first, since the backend's model memory is freed here.
func (e *Engine) Close() error {
	if err := e.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.loaded.Swap(nil)
	if l == nil {
		return nil
	}
	return l.backend.Close()
}
