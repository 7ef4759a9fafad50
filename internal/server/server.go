package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/scratch"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/transcode"
	"github.com/guiyumin/sentinel-whisper-server/internal/metrics"
)

// Engine is the transcription entry point used by the handlers.
type Engine interface {
	TranscribeFile(ctx context.Context, path string, opts asr.Options) ([]asr.Segment, asr.Info, error)
	TranscribeSamples(ctx context.Context, samples []float32, opts asr.Options) ([]asr.Segment, asr.Info, error)
}

// Options are the server settings resolved at startup.
type Options struct {
	Port int
	// MaxPCMBytes caps raw PCM bodies; 0 means unlimited
	MaxPCMBytes int64
	Version     string
	Logger      *slog.Logger
}

// Server is the HTTP server for the transcription API
type Server struct {
	port        int
	maxPCMBytes int64
	version     string

	engine     Engine
	transcoder transcode.Transcoder
	scratch    *scratch.Manager
	logger     *slog.Logger

	router *gin.Engine
	server *http.Server
}

// NewServer creates a server and registers its routes.
func NewServer(opts Options, engine Engine, transcoder transcode.Transcoder, sm *scratch.Manager) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:        opts.Port,
		maxPCMBytes: opts.MaxPCMBytes,
		version:     opts.Version,
		engine:      engine,
		transcoder:  transcoder,
		scratch:     sm,
		logger:      logger.With("component", "http"),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      0, // inference has no upper bound
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/version", s.handleVersion)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/asr", s.handleASR)
	r.POST("/detect-language", s.handleDetectLanguage)
	r.POST("/asr/pcm", s.handleASRPCM)
	r.POST("/detect-language/pcm", s.handleDetectLanguagePCM)

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured port and blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server", "port", s.port, "version", s.version, "transcoder", s.transcoder.Name(), "scratch_dir", s.scratch.Dir())
	if s.maxPCMBytes > 0 {
		s.logger.Info("PCM body limit enabled", "max_bytes", s.maxPCMBytes)
	}

	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Middleware

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		level := slog.LevelInfo
		if route == "/health" || route == "/metrics" {
			level = slog.LevelDebug
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed.String(),
		)
	}
}

// Handlers

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.version})
}
