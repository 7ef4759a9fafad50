package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/config"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/logging"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/version"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "sentinel-whisper",
	Short:        "Speech-to-text HTTP server backed by Whisper models",
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ~/.config/sentinel-whisper/config.yml)")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.LoadOptions{Path: configPath})
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
