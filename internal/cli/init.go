package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			if err := config.Save(config.DefaultConfig(), configPath); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", configPath)
			return nil
		}

		path, err := config.Init()
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
