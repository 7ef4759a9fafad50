package main

import (
	"os"

	"github.com/guiyumin/sentinel-whisper-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
