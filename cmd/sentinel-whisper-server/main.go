package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/app"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/config"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/logging"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/version"
)

func main() {
	// Command-line flags
	port := flag.Int("port", 0, "HTTP listen port (default: 8080)")
	configFile := flag.String("config", "", "config file (default: ~/.config/sentinel-whisper/config.yml)")
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sentinel-whisper-server %s\n", version.Version)
		return
	}

	cfg, err := config.Load(config.LoadOptions{
		Path:     *configFile,
		EnvFiles: []string{*envFile},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// flag > env > config > default
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
