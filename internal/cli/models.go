package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
)

var modelsComputeType string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage Whisper model files",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known models and whether they are downloaded",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ct := modelsComputeType
		if ct == "" {
			ct = cfg.ASR.ComputeType
		}

		mm := asr.NewModelManager(cfg.ASR.ModelDir, asr.WithModelLogger(logger))

		bold := color.New(color.Bold)
		green := color.New(color.FgGreen)
		faint := color.New(color.Faint)

		bold.Printf("Models in %s (compute type %s)\n\n", mm.Dir(), ct)
		for _, m := range mm.ListAvailableModels(ct) {
			marker := faint.Sprint("  ")
			if m.Downloaded {
				marker = green.Sprint("✓ ")
			}
			name := fmt.Sprintf("%-16s", m.Name)
			if m.Name == cfg.ASR.Model {
				name = bold.Sprint(name)
			}
			fmt.Printf("  %s%s %-8s %s\n", marker, name, m.Size, faint.Sprint(m.Description))
		}
		return nil
	},
}

var modelsDownloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a model into the model directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ct := modelsComputeType
		if ct == "" {
			ct = cfg.ASR.ComputeType
		}

		mm := asr.NewModelManager(cfg.ASR.ModelDir, asr.WithModelLogger(logger))
		if mm.IsModelDownloaded(args[0], ct) {
			fmt.Printf("%s already present at %s\n", args[0], mm.ModelPath(args[0], ct))
			return nil
		}

		path, err := mm.EnsureModel(cmd.Context(), args[0], ct)
		if err != nil {
			return err
		}
		color.Green("Saved %s", path)
		return nil
	},
}

func init() {
	modelsCmd.PersistentFlags().StringVar(&modelsComputeType, "compute-type", "", "model precision (default: asr.compute_type from config)")
	modelsCmd.AddCommand(modelsListCmd, modelsDownloadCmd)
	rootCmd.AddCommand(modelsCmd)
}
