// Package app wires the configuration into a running server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr/openai"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr/whispercpp"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/config"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/scratch"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/transcode"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/version"
	"github.com/guiyumin/sentinel-whisper-server/internal/server"
)

// ShutdownTimeout bounds how long in-flight requests get on shutdown.
const ShutdownTimeout = 10 * time.Second

// App holds the long-lived components of a server process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	engine *asr.Engine
	server *server.Server
}

// New builds the engine, scratch manager, transcoder and HTTP server.
// The model itself is loaded on the first request.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sm, err := scratch.New(cfg.ScratchDir, logger)
	if err != nil {
		return nil, err
	}

	tc, err := transcode.Resolve(cfg.Transcoder.Kind, cfg.Transcoder.Path, logger)
	if err != nil {
		return nil, err
	}

	engine := asr.NewEngine(NewFactory(cfg, logger), asr.WithLogger(logger))

	srv := server.NewServer(server.Options{
		Port:        cfg.Server.Port,
		MaxPCMBytes: cfg.PCM.MaxBytes,
		Version:     version.Resolve(cfg.AppVersion),
		Logger:      logger,
	}, engine, tc, sm)

	return &App{
		cfg:    cfg,
		logger: logger,
		engine: engine,
		server: srv,
	}, nil
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	select {
	case err := <-errCh:
		a.engine.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := a.server.Stop(shutdownCtx)
	if cerr := a.engine.Close(); cerr != nil {
		a.logger.Warn("failed to release engine", "error", cerr)
	}
	return err
}

// NewFactory returns the backend constructor selected by cfg.ASR.Engine.
func NewFactory(cfg *config.Config, logger *slog.Logger) asr.Factory {
	switch cfg.ASR.Engine {
	case config.EngineOpenAI:
		return func(ctx context.Context) (asr.Backend, error) {
			b, err := openai.New(openai.Config{
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
				TempDir: cfg.ScratchDir,
			})
			if err != nil {
				return nil, err
			}
			return b, nil
		}
	default:
		return func(ctx context.Context) (asr.Backend, error) {
			path, err := resolveModel(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			b, err := whispercpp.New(whispercpp.Config{
				ModelPath: path,
				Threads:   cfg.ASR.Threads,
				Device:    cfg.ASR.Device,
				Logger:    logger,
			})
			if err != nil {
				return nil, err
			}
			return b, nil
		}
	}
}

// resolveModel finds the model file, downloading it when allowed.
func resolveModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (string, error) {
	mm := asr.NewModelManager(cfg.ASR.ModelDir, asr.WithModelLogger(logger))

	if mm.IsModelDownloaded(cfg.ASR.Model, cfg.ASR.ComputeType) {
		return mm.ModelPath(cfg.ASR.Model, cfg.ASR.ComputeType), nil
	}
	if !cfg.ASR.AutoDownload {
		return "", fmt.Errorf("model %s not found in %s; run 'sentinel-whisper models download %s'",
			cfg.ASR.Model, mm.Dir(), cfg.ASR.Model)
	}
	return mm.EnsureModel(ctx, cfg.ASR.Model, cfg.ASR.ComputeType)
}
